package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"go.uber.org/zap"

	"github.com/leozw/ssl-verifier/internal/core"
)

type RemoteWriteConfig struct {
	URL          string
	AuthToken    string
	TenantHeader string
	Tenant       string
	Job          string
	BatchSize    int
	Timeout      time.Duration
}

// Pusher sends the gathered metrics to a Prometheus remote-write endpoint.
type Pusher struct {
	cfg      RemoteWriteConfig
	gatherer prometheus.Gatherer
	client   *http.Client
	logger   *zap.Logger
	now      func() time.Time
}

func NewPusher(cfg RemoteWriteConfig, gatherer prometheus.Gatherer, logger *zap.Logger) *Pusher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Job == "" {
		cfg.Job = "sslverify"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pusher{
		cfg:      cfg,
		gatherer: gatherer,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
		now:      time.Now,
	}
}

// Save pushes the current metric values. It lets the pusher run as a batch
// sink after the collector has recorded the batch.
func (p *Pusher) Save(ctx context.Context, _ *core.BatchResult) error {
	return p.Push(ctx)
}

func (p *Pusher) Push(ctx context.Context) error {
	mfs, err := p.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	series := p.toTimeSeries(mfs, p.now().UnixMilli())
	if len(series) == 0 {
		return nil
	}

	for i := 0; i < len(series); i += p.cfg.BatchSize {
		end := min(i+p.cfg.BatchSize, len(series))
		if err := p.send(ctx, series[i:end]); err != nil {
			return fmt.Errorf("failed to send batch: %w", err)
		}
	}

	p.logger.Debug("Metrics pushed", zap.Int("series", len(series)))
	return nil
}

func (p *Pusher) toTimeSeries(mfs []*dto.MetricFamily, ts int64) []prompb.TimeSeries {
	var out []prompb.TimeSeries

	for _, mf := range mfs {
		for _, m := range mf.Metric {
			labels := make([]prompb.Label, 0, len(m.Label)+2)
			labels = append(labels,
				prompb.Label{Name: "__name__", Value: mf.GetName()},
				prompb.Label{Name: "job", Value: p.cfg.Job},
			)
			for _, l := range m.Label {
				labels = append(labels, prompb.Label{Name: l.GetName(), Value: l.GetValue()})
			}

			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out = append(out, sample(labels, m.Counter.GetValue(), ts))
			case dto.MetricType_GAUGE:
				out = append(out, sample(labels, m.Gauge.GetValue(), ts))
			case dto.MetricType_HISTOGRAM:
				hist := m.Histogram
				base := mf.GetName()
				for _, bucket := range hist.Bucket {
					bucketLabels := withName(labels, base+"_bucket")
					bucketLabels = append(bucketLabels, prompb.Label{
						Name:  "le",
						Value: fmt.Sprintf("%g", bucket.GetUpperBound()),
					})
					out = append(out, sample(bucketLabels, float64(bucket.GetCumulativeCount()), ts))
				}
				inf := append(withName(labels, base+"_bucket"), prompb.Label{Name: "le", Value: "+Inf"})
				out = append(out,
					sample(inf, float64(hist.GetSampleCount()), ts),
					sample(withName(labels, base+"_sum"), hist.GetSampleSum(), ts),
					sample(withName(labels, base+"_count"), float64(hist.GetSampleCount()), ts),
				)
			}
		}
	}
	return out
}

func sample(labels []prompb.Label, value float64, ts int64) prompb.TimeSeries {
	return prompb.TimeSeries{
		Labels:  labels,
		Samples: []prompb.Sample{{Value: value, Timestamp: ts}},
	}
}

// withName copies labels replacing the metric name.
func withName(labels []prompb.Label, name string) []prompb.Label {
	out := make([]prompb.Label, len(labels))
	copy(out, labels)
	out[0].Value = name
	return out
}

func (p *Pusher) send(ctx context.Context, series []prompb.TimeSeries) error {
	req := &prompb.WriteRequest{Timeseries: series}
	data, err := req.Marshal()
	if err != nil {
		return err
	}
	compressed := snappy.Encode(nil, data)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(compressed))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if p.cfg.TenantHeader != "" && p.cfg.Tenant != "" {
		httpReq.Header.Set(p.cfg.TenantHeader, p.cfg.Tenant)
	}
	if p.cfg.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.AuthToken)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("remote write failed: %s", resp.Status)
	}
	return nil
}
