package sqlinline

const QToolStats = `--sql 0f0557a2-1731-4fc6-8cbe-8540b1d2b6df
select
  tool_id,
  count(*)::bigint as total,
  count(*) filter (where status = 'succeeded')::bigint as succeeded,
  count(*) filter (where status = 'failed')::bigint as failed,
  count(*) filter (where status = 'cancelled')::bigint as cancelled,
  coalesce(avg(processing_time_ms) filter (where status = 'succeeded'), 0)::float8 as avg_processing_ms
from transform_jobs
where created_at >= $1::timestamptz
group by tool_id
order by total desc, tool_id;
`
