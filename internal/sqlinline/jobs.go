package sqlinline

const QInsertJob = `--sql 7c1f2a9e-33b0-4d2a-9f41-8be2a6d0c154
insert into generation_jobs (id, project_id, status, progress, total_items, cancel_requested, last_error, created_at, updated_at)
values ($1, $2, $3, 0, $4, false, '', $5, $5);
`

const QGetJob = `--sql e4a8b6d1-0f72-4c3e-8a15-d9c47b20e6f3
select id, project_id, status, progress, total_items, cancel_requested, last_error, created_at, updated_at
from generation_jobs
where id = $1;
`

const QMarkJobProcessing = `--sql 5d0c7e82-91af-4b64-a2d3-76f1e85c09ba
update generation_jobs
set status = 'processing', updated_at = now()
where id = $1 and status = 'pending';
`

const QRecomputeJobStatus = `--sql a92d4f17-6c8b-4e05-b3a9-0e5d21c87f46
with agg as (
    select
        count(*) as total,
        count(*) filter (where state in ('succeeded', 'failed')) as done,
        count(*) filter (where state = 'failed') as failed,
        count(*) filter (where attempt > 0) as started,
        max(fail_reason) filter (where state = 'failed') as any_fail
    from work_items
    where job_id = $1
)
update generation_jobs j
set progress = agg.done,
    status = case
        when agg.total > 0 and agg.done = agg.total and agg.failed = 0 then 'completed'
        when agg.total > 0 and agg.done = agg.total then 'failed'
        when agg.started > 0 then 'processing'
        else 'pending'
    end,
    last_error = coalesce(agg.any_fail, j.last_error),
    updated_at = now()
from agg
where j.id = $1
returning j.status;
`

const QRequestCancel = `--sql 3b6e9c04-d1a5-47f8-92b7-c40a8e51d263
update generation_jobs
set cancel_requested = true, updated_at = now()
where id = $1 and status not in ('completed', 'failed')
returning id;
`

const QCancelRequested = `--sql f8250a6b-7e93-4c18-ad04-1b6c95d3e782
select cancel_requested
from generation_jobs
where id = $1;
`
