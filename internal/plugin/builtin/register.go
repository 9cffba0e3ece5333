package builtin

import "github.com/mellivora/etl-engine/internal/plugin"

// Register adds every built-in plugin to r.
func Register(r *plugin.Registry) {
	r.RegisterExtract("http", NewHTTPExtract)
	r.RegisterExtract("postgres", NewPostgresExtract)
	r.RegisterExtract("csv", NewCSVExtract)

	r.RegisterTransform("filter", NewFilterTransform)
	r.RegisterTransform("aggregate", NewAggregateTransform)
	r.RegisterTransform("join", NewJoinTransform)
	r.RegisterTransform("dedupe", NewDedupeTransform)

	r.RegisterLoad("postgres", NewPostgresLoad)
	r.RegisterLoad("csv", NewCSVLoad)
	r.RegisterLoad("cache", NewCacheLoad)
	r.RegisterLoad("minio", NewObjectLoad)
}
