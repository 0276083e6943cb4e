// Package dedupe decides whether an incoming fee record duplicates one
// already seen, and collapses duplicate clusters into a single best
// representative.
package dedupe

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taxakollen/taxa-cli/internal/config"
	"github.com/taxakollen/taxa-cli/internal/model"
)

// Detector holds the live cluster index for one run. It is owned by the
// orchestrator, which serializes access; the Detector itself performs no
// locking.
type Detector struct {
	strategies []Strategy

	clusters map[string]*model.Cluster
	order    []string          // cluster ids in creation order
	exact    map[string]string // canonical key -> cluster id
}

// NewDetector creates a Detector with the configured strategy order.
func NewDetector(cfg config.PipelineConfig) *Detector {
	return &Detector{
		strategies: Strategies(cfg),
		clusters:   make(map[string]*model.Cluster),
		exact:      make(map[string]string),
	}
}

// Match tests a scored record against all existing cluster
// representatives. It returns the matching cluster id and the strategy
// that fired, or ok=false when the record should open a new cluster.
//
// Strategies run in decreasing precision; within one strategy, clusters
// are scanned in creation order so the first-found match is
// deterministic. Only representatives are compared, keeping the check
// linear in the number of clusters.
func (d *Detector) Match(rec model.FeeRecord) (clusterID, strategy string, ok bool) {
	for _, s := range d.strategies {
		if s.Name == config.StrategyExact {
			// The exact strategy is a hash lookup, not a scan.
			if id, found := d.exact[CanonicalKey(rec)]; found {
				return id, s.Name, true
			}
			continue
		}
		for _, id := range d.order {
			if s.Match(rec, d.clusters[id].Representative) {
				return id, s.Name, true
			}
		}
	}
	return "", "", false
}

// Open creates a new cluster with the record as its first member and
// representative.
func (d *Detector) Open(rec model.FeeRecord) *model.Cluster {
	id := uuid.New().String()
	rec.ClusterID = id

	now := time.Now().UTC()
	c := &model.Cluster{
		ID:             id,
		Representative: rec,
		Members:        []model.FeeRecord{rec},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	d.clusters[id] = c
	d.order = append(d.order, id)
	d.exact[CanonicalKey(rec)] = id

	zap.L().Debug("dedupe: new cluster",
		zap.String("cluster_id", id),
		zap.String("municipality", rec.Municipality),
		zap.String("fee_name", rec.FeeName),
	)
	return c
}

// Cluster returns the cluster with the given id, or nil.
func (d *Detector) Cluster(id string) *model.Cluster {
	return d.clusters[id]
}

// UpdateRepresentative swaps a cluster's representative and re-keys the
// exact-match index so future records match against the new best
// evidence.
func (d *Detector) UpdateRepresentative(id string, rep model.FeeRecord) {
	c := d.clusters[id]
	if c == nil {
		return
	}
	delete(d.exact, CanonicalKey(c.Representative))
	rep.ClusterID = id
	c.Representative = rep
	c.UpdatedAt = time.Now().UTC()
	d.exact[CanonicalKey(rep)] = id
}

// Clusters returns all clusters in creation order.
func (d *Detector) Clusters() []*model.Cluster {
	out := make([]*model.Cluster, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.clusters[id])
	}
	return out
}

// Len returns the number of clusters.
func (d *Detector) Len() int { return len(d.order) }
