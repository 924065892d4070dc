package sqlinline

const QInsertWorkItem = `--sql 9e3a51c7-284d-4f6b-b0e9-57d2c18af035
insert into work_items (id, job_id, asset_id, asset_ref, format_json, state, attempt, last_error, fail_reason, created_at, updated_at)
values ($1, $2, $3, $4, $5, 'pending', 0, '', '', $6, $6);
`

const QListWorkItems = `--sql 1d7b4e92-a650-4c3f-8d21-e96b03c5a874
select id, job_id, asset_id, asset_ref, format_json, state, attempt, last_error, fail_reason, created_at, updated_at
from work_items
where job_id = $1
order by created_at asc, id asc;
`

// QBeginAttempt claims one attempt. The state and attempt predicates make
// the update a no-op for terminal items and stale redeliveries, which is the
// duplicate-delivery guard.
const QBeginAttempt = `--sql c05f8d23-b7a1-4e96-90c4-6a2e51d78b39
update work_items
set attempt = $2, state = 'processing', updated_at = now()
where id = $1
  and state in ('pending', 'processing')
  and attempt < $2
returning job_id;
`

// QListOpenWorkItems feeds queue recovery after a restart: every
// non-terminal item gets re-enqueued with the next attempt number.
const QListOpenWorkItems = `--sql 2f9c7b50-8d14-4a6e-93c8-5e07a1d4b62f
select w.id, w.job_id, w.asset_ref, w.format_json, w.attempt
from work_items w
where w.state in ('pending', 'processing')
order by w.created_at asc, w.id asc;
`

// QReopenWorkItem feeds manual dead-letter recovery: a failed item goes back
// to pending and the consumed attempt count is reported so the requeued
// message can carry attempt+1. Non-terminal items pass through untouched.
const QReopenWorkItem = `--sql 7a48d9f0-2b5e-4c17-9d83-e60b14a7c2f5
update work_items
set state = case when state = 'failed' then 'pending' else state end,
    fail_reason = case when state = 'failed' then '' else fail_reason end,
    updated_at = now()
where id = $1 and state <> 'succeeded'
returning attempt;
`

const QWorkItemState = `--sql d15b7e29-8f40-4a6c-b3d1-97c2e50a4f68
select state
from work_items
where id = $1;
`

const QCompleteWorkItem = `--sql 62a9d0f5-4c8e-41b7-a5d2-8f30c76e194a
update work_items
set state = 'succeeded', attempt = $2, updated_at = now()
where id = $1 and state not in ('succeeded', 'failed');
`

const QFailWorkItem = `--sql b4e16c88-95d3-4a02-bc7f-30a9d5e21764
update work_items
set state = 'failed', attempt = $2, last_error = $3, fail_reason = $3, updated_at = now()
where id = $1 and state not in ('succeeded', 'failed');
`
