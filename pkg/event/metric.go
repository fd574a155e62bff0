package event

// MetricKind distinguishes whether a metric value is an absolute reading
// or an incremental delta to be summed with prior values.
type MetricKind uint8

const (
	MetricAbsolute MetricKind = iota
	MetricIncremental
)

// MetricValueKind discriminates the metric value union.
type MetricValueKind uint8

const (
	MetricCounter MetricValueKind = iota
	MetricGauge
	MetricSet
	MetricDistribution
	MetricAggregatedHistogram
	MetricAggregatedSummary
)

// Sample is one observation contributing to a distribution.
type Sample struct {
	Value float64
	Rate  uint32
}

// Bucket is one bucket of an aggregated histogram.
type Bucket struct {
	UpperLimit float64
	Count      uint64
}

// Quantile is one quantile of an aggregated summary.
type Quantile struct {
	Quantile float64
	Value    float64
}

// MetricValue is the tagged union of supported metric shapes.
type MetricValue struct {
	Kind MetricValueKind

	Counter      float64
	Gauge        float64
	Set          []string
	Distribution []Sample
	Histogram    []Bucket
	HistogramSum float64
	HistogramCnt uint64
	Summary      []Quantile
	SummarySum   float64
	SummaryCnt   uint64
}

// Metric is the payload of a Metric event.
type Metric struct {
	Name      string
	Namespace string
	Tags      map[string]string
	Kind      MetricKind
	Value     MetricValue
}

func (m Metric) clone() Metric {
	c := m
	if m.Tags != nil {
		c.Tags = make(map[string]string, len(m.Tags))
		for k, v := range m.Tags {
			c.Tags[k] = v
		}
	}
	if m.Value.Set != nil {
		c.Value.Set = append([]string(nil), m.Value.Set...)
	}
	if m.Value.Distribution != nil {
		c.Value.Distribution = append([]Sample(nil), m.Value.Distribution...)
	}
	if m.Value.Histogram != nil {
		c.Value.Histogram = append([]Bucket(nil), m.Value.Histogram...)
	}
	if m.Value.Summary != nil {
		c.Value.Summary = append([]Quantile(nil), m.Value.Summary...)
	}
	return c
}

func (m Metric) estimatedSize() int {
	n := len(m.Name) + len(m.Namespace) + 16
	for k, v := range m.Tags {
		n += len(k) + len(v) + 2
	}
	switch m.Value.Kind {
	case MetricSet:
		for _, s := range m.Value.Set {
			n += len(s)
		}
	case MetricDistribution:
		n += len(m.Value.Distribution) * 16
	case MetricAggregatedHistogram:
		n += len(m.Value.Histogram) * 16
	case MetricAggregatedSummary:
		n += len(m.Value.Summary) * 16
	}
	return n
}

// Merge combines another metric's value into this one, per the
// incremental-kind semantics. Merging must be associative and
// commutative (see DESIGN.md's Open Question decision); callers merging
// non-numeric shapes (Set, Distribution, Histogram, Summary) get list
// concatenation, which is associative and commutative up to duplicate
// retention, the same union semantics finalizer merges use alongside
// these payloads.
func (m *Metric) Merge(other Metric) {
	switch m.Value.Kind {
	case MetricCounter:
		m.Value.Counter += other.Value.Counter
	case MetricGauge:
		m.Value.Gauge += other.Value.Gauge
	case MetricSet:
		m.Value.Set = append(m.Value.Set, other.Value.Set...)
	case MetricDistribution:
		m.Value.Distribution = append(m.Value.Distribution, other.Value.Distribution...)
	case MetricAggregatedHistogram:
		m.Value.Histogram = append(m.Value.Histogram, other.Value.Histogram...)
		m.Value.HistogramSum += other.Value.HistogramSum
		m.Value.HistogramCnt += other.Value.HistogramCnt
	case MetricAggregatedSummary:
		m.Value.Summary = append(m.Value.Summary, other.Value.Summary...)
		m.Value.SummarySum += other.Value.SummarySum
		m.Value.SummaryCnt += other.Value.SummaryCnt
	}
}
