// Command scraper forwards the road-ahead service's Prometheus metrics to
// Google Cloud Monitoring. It runs as its own small container and does one
// scrape per incoming request, so a scheduler decides the cadence.
//
// Each scrape fetches /metrics from the service, keeps only the families that
// carry the service's namespace prefix, and writes them as
// prometheus.googleapis.com time series against a prometheus_target resource.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"github.com/joho/godotenv"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/genproto/googleapis/api/distribution"
	"google.golang.org/genproto/googleapis/api/metric"
	"google.golang.org/genproto/googleapis/api/monitoredres"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	defaultNamespace = "roadahead"
	defaultLocation  = "europe-west1"
)

// scraperConfig is read from the environment on every scrape.
type scraperConfig struct {
	metricsURL string
	projectID  string
	location   string
	namespace  string
}

func loadScraperConfig() (scraperConfig, error) {
	cfg := scraperConfig{
		metricsURL: os.Getenv("METRICS_URL"),
		projectID:  os.Getenv("PROJECT_ID"),
		location:   os.Getenv("GCP_LOCATION"),
		namespace:  os.Getenv("METRICS_NAMESPACE"),
	}
	if cfg.metricsURL == "" {
		return scraperConfig{}, fmt.Errorf("environment variable METRICS_URL must be set")
	}
	if cfg.projectID == "" {
		return scraperConfig{}, fmt.Errorf("environment variable PROJECT_ID must be set")
	}
	if cfg.location == "" {
		cfg.location = defaultLocation
	}
	if cfg.namespace == "" {
		cfg.namespace = defaultNamespace
	}
	return cfg, nil
}

// timeSeriesWriter is the part of the Cloud Monitoring client the scraper uses.
type timeSeriesWriter interface {
	CreateTimeSeries(ctx context.Context, req *monitoringpb.CreateTimeSeriesRequest) error
}

// metricClientWriter opens a Cloud Monitoring client per write.
type metricClientWriter struct{}

func (metricClientWriter) CreateTimeSeries(ctx context.Context, req *monitoringpb.CreateTimeSeriesRequest) error {
	client, err := monitoring.NewMetricClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create monitoring client: %w", err)
	}
	defer client.Close()
	return client.CreateTimeSeries(ctx, req)
}

type scraper struct {
	httpClient *http.Client
	writer     timeSeriesWriter
	logger     *slog.Logger
	now        func() time.Time
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on environment variables")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	s := &scraper{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		writer:     metricClientWriter{},
		logger:     logger,
		now:        time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleScrape)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("starting server", "port", port)
	if err := server.ListenAndServe(); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}

func (s *scraper) handleScrape(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("scrape request received")
	cfg, err := loadScraperConfig()
	if err != nil {
		s.logger.Error("invalid scraper configuration", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	written, err := s.scrapeAndIngest(r.Context(), cfg)
	if err != nil {
		s.logger.Error("error during scrape and ingest", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Info("scrape finished", "time_series", written)
	fmt.Fprintln(w, "Success")
}

// scrapeAndIngest returns the number of time series written.
func (s *scraper) scrapeAndIngest(ctx context.Context, cfg scraperConfig) (int, error) {
	families, err := s.fetchMetricFamilies(ctx, cfg.metricsURL)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch metrics: %w", err)
	}

	resource := &monitoredres.MonitoredResource{
		Type: "prometheus_target",
		Labels: map[string]string{
			"project_id": cfg.projectID,
			"location":   cfg.location,
			"cluster":    "__gce__",
			"namespace":  cfg.namespace,
			"job":        cfg.namespace,
			"instance":   cfg.metricsURL,
		},
	}
	series := convertMetricFamilies(families, cfg.namespace+"_", resource, timestamppb.New(s.now()), s.logger)
	if len(series) == 0 {
		s.logger.Info("no metric samples found to ingest")
		return 0, nil
	}

	req := &monitoringpb.CreateTimeSeriesRequest{
		Name:       "projects/" + cfg.projectID,
		TimeSeries: series,
	}
	if err := s.writer.CreateTimeSeries(ctx, req); err != nil {
		return 0, fmt.Errorf("failed to write time series data: %w", err)
	}
	return len(series), nil
}

func (s *scraper) fetchMetricFamilies(ctx context.Context, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http request failed with status code %d", resp.StatusCode)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prometheus metrics: %w", err)
	}
	return families, nil
}

// convertMetricFamilies turns every sample of the families whose name starts
// with prefix into one time series. Output is sorted by family name.
func convertMetricFamilies(families map[string]*dto.MetricFamily, prefix string, resource *monitoredres.MonitoredResource, now *timestamppb.Timestamp, logger *slog.Logger) []*monitoringpb.TimeSeries {
	names := make([]string, 0, len(families))
	for name := range families {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	var series []*monitoringpb.TimeSeries
	for _, name := range names {
		mf := families[name]
		for _, m := range mf.GetMetric() {
			var point *monitoringpb.Point
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				point = doublePoint(now, m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				point = doublePoint(now, m.GetGauge().GetValue())
			case dto.MetricType_UNTYPED:
				point = doublePoint(now, m.GetUntyped().GetValue())
			case dto.MetricType_HISTOGRAM:
				point = distributionPoint(now, m.GetHistogram(), logger)
			default:
				logger.Debug("skipping metric with unhandled type", "metric", name, "type", mf.GetType().String())
				continue
			}

			labels := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			series = append(series, &monitoringpb.TimeSeries{
				Metric: &metric.Metric{
					Type:   "prometheus.googleapis.com/" + name,
					Labels: labels,
				},
				Resource: resource,
				Points:   []*monitoringpb.Point{point},
			})
		}
	}
	return series
}

func doublePoint(timestamp *timestamppb.Timestamp, value float64) *monitoringpb.Point {
	return &monitoringpb.Point{
		Interval: &monitoringpb.TimeInterval{EndTime: timestamp},
		Value: &monitoringpb.TypedValue{
			Value: &monitoringpb.TypedValue_DoubleValue{DoubleValue: value},
		},
	}
}

// distributionPoint converts cumulative Prometheus buckets into per-bucket
// counts. The +Inf bucket becomes the overflow bucket and has no bound.
func distributionPoint(timestamp *timestamppb.Timestamp, h *dto.Histogram, logger *slog.Logger) *monitoringpb.Point {
	buckets := h.GetBucket()
	bounds := make([]float64, 0, len(buckets))
	counts := make([]int64, 0, len(buckets)+1)
	var previous uint64
	for _, b := range buckets {
		if math.IsInf(b.GetUpperBound(), +1) {
			continue
		}
		bounds = append(bounds, b.GetUpperBound())
		counts = append(counts, capInt64(b.GetCumulativeCount()-previous, logger))
		previous = b.GetCumulativeCount()
	}
	counts = append(counts, capInt64(h.GetSampleCount()-previous, logger))

	dist := &distribution.Distribution{
		Count: capInt64(h.GetSampleCount(), logger),
		BucketOptions: &distribution.Distribution_BucketOptions{
			Options: &distribution.Distribution_BucketOptions_ExplicitBuckets{
				ExplicitBuckets: &distribution.Distribution_BucketOptions_Explicit{Bounds: bounds},
			},
		},
		BucketCounts: counts,
	}
	if h.GetSampleCount() > 0 {
		dist.Mean = h.GetSampleSum() / float64(h.GetSampleCount())
	}

	return &monitoringpb.Point{
		Interval: &monitoringpb.TimeInterval{EndTime: timestamp},
		Value: &monitoringpb.TypedValue{
			Value: &monitoringpb.TypedValue_DistributionValue{DistributionValue: dist},
		},
	}
}

func capInt64(v uint64, logger *slog.Logger) int64 {
	if v > math.MaxInt64 {
		logger.Warn("count exceeds MaxInt64, capping value", "value", v)
		return math.MaxInt64
	}
	return int64(v)
}
