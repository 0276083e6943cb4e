package model

import "time"

// Cluster groups fee records believed to describe the same real-world
// fee. Representative is the single record exposed downstream; it is
// replaced by the merge resolver as better evidence arrives. Members
// keeps every record ever matched into the cluster, including the ones
// a merge superseded.
type Cluster struct {
	ID             string      `json:"id"`
	Representative FeeRecord   `json:"representative"`
	Members        []FeeRecord `json:"members"`
	MatchedBy      []string    `json:"matched_by,omitempty"` // strategy per merge, in arrival order
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Size returns the member count.
func (c *Cluster) Size() int { return len(c.Members) }
