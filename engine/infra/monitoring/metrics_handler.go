package monitoring

// MetricsHandler godoc
//
//	@Summary		Prometheus metrics endpoint
//	@Description	Exposes application metrics in Prometheus exposition format.
//	@Description	This endpoint is used by Prometheus servers to scrape metrics.
//	@Description
//	@Description	Available metrics include:
//	@Description	- HTTP request rates and latencies
//	@Description	- Workflow starts, signals, and activity failures
//	@Description	- pgx connection pool health
//	@Tags			Operations
//	@Produce		plain
//	@Success		200	{string}	string	"Metrics in Prometheus format"
//	@Failure		503	{string}	string	"Monitoring service unavailable"
//	@Router			/metrics [get]
func MetricsHandler() {
}
