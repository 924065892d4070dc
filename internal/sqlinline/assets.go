package sqlinline

// QInsertAsset returns no row when a record already exists for the work
// item, which callers surface as a duplicate operation.
const QInsertAsset = `--sql 08d5f3a1-6b94-4e27-85c0-d1e74a92b6f8
insert into generated_assets (id, work_item_id, job_id, storage_key, width, height, flagged, moderation_category, plan_used, manual_edits, created_at)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
on conflict (work_item_id) do nothing
returning id;
`

const QGetAssetByWorkItem = `--sql 4fa2c876-e01d-49b3-ae58-72c6f90d15e4
select id, work_item_id, job_id, storage_key, width, height, flagged, moderation_category, plan_used, manual_edits, created_at
from generated_assets
where work_item_id = $1;
`

const QListAssetsByJob = `--sql d63b0a49-17f5-4c82-9e6a-b58c43d07f21
select id, work_item_id, job_id, storage_key, width, height, flagged, moderation_category, plan_used, manual_edits, created_at
from generated_assets
where job_id = $1
order by created_at asc, id asc;
`

const QAttachManualEdits = `--sql 71c8e5b2-a3d9-40f6-bd17-29e05c84a6d3
update generated_assets
set manual_edits = $2
where id = $1
returning id;
`
