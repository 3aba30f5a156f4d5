package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pscheid92/votepulse/internal/adapter/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestExtractQueryName(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{insertVote, "InsertVote"},
		{reconcileCycle, "ReconcileCycle"},
		{"SELECT 1", "SELECT"},
		{"select pg_advisory_lock($1)", "SELECT"},
		{"TRUNCATE\nvotes", "TRUNCATE"},
		{"", "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, extractQueryName(tt.sql), tt.sql)
	}
}

func TestMetricsTracer_RecordsErrors(t *testing.T) {
	storeMetrics := metrics.NewStoreMetrics(prometheus.NewRegistry())
	tracer := NewMetricsTracer(storeMetrics)

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: awardPoints})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("boom")})

	ctx = tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: awardPoints})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	assert.Equal(t, 1.0, testutil.ToFloat64(storeMetrics.DBErrors.WithLabelValues("AwardPoints")))
	assert.Equal(t, 1, testutil.CollectAndCount(storeMetrics.DBQueryDuration))
}
