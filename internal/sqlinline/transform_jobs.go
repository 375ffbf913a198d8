package sqlinline

const QEnsureTransformJobs = `--sql 3f9c2a71-5b1e-4d8a-9c47-2e6b81f0d4a3
create table if not exists transform_jobs (
  id text primary key,
  tool_id text not null,
  quality text not null,
  is_vip boolean not null default false,
  status text not null,
  result_key text not null default '',
  error_message text not null default '',
  processing_time_ms bigint not null default 0,
  created_at timestamptz not null default now(),
  updated_at timestamptz not null default now()
);
`

const QInsertTransformJob = `--sql 8a41d6e2-0c7f-4b93-a1d5-6f2e9b7c3d10
insert into transform_jobs(id, tool_id, quality, is_vip, status, created_at, updated_at)
values ($1::text, $2::text, $3::text, $4::boolean, $5::text, now(), now())
on conflict (id) do update
set tool_id = excluded.tool_id,
    quality = excluded.quality,
    is_vip = excluded.is_vip,
    status = excluded.status,
    result_key = '',
    error_message = '',
    processing_time_ms = 0,
    updated_at = now();
`

const QFinishTransformJob = `--sql c27e5b90-4d1a-4f6e-8b3c-91a0d7e4f582
update transform_jobs
set status = $2::text,
    result_key = $3::text,
    error_message = $4::text,
    processing_time_ms = $5::bigint,
    updated_at = now()
where id = $1::text;
`

const QSelectTransformJob = `--sql 5d0b8f13-e6a2-47c9-b5d4-0a9e3c71f2b6
select id, tool_id, quality, is_vip, status, result_key, error_message, processing_time_ms, created_at, updated_at
from transform_jobs
where id = $1::text
limit 1;
`

const QListRecentTransformJobs = `--sql e8a3c6d4-71b2-4e05-9f8a-2c5d0b4e7a19
select id, tool_id, quality, is_vip, status, result_key, error_message, processing_time_ms, created_at, updated_at
from transform_jobs
order by created_at desc
limit $1::int;
`
