package tiktok

// Profile is the structured record extracted from a creator's profile
// page. Counts default to 0 when the source document omits them; SecUID
// is empty when no strategy could recover it.
type Profile struct {
	Username    string
	DisplayName string
	AvatarURL   string
	Bio         string
	SecUID      string
	Followers   int
	Following   int
	Likes       int
	VideoCount  int
}

// VideoCandidate is one entry of a creator's video list, used only while
// selecting the target post. The site does not guarantee a stable order
// across fetches.
type VideoCandidate struct {
	ID        string
	Pinned    bool
	PlayCount int
}

// Commenter is a distinct account that commented on the target post.
// Stats pointers stay nil until enrichment runs for this entry; a nil
// value after enrichment means the stats fetch failed.
type Commenter struct {
	Identifier  string `json:"identifier"`
	ProfileURL  string `json:"profile_url"`
	DisplayName string `json:"display_name"`
	Followers   *int   `json:"followers"`
	Following   *int   `json:"following"`
	Likes       *int   `json:"likes"`
	Email       string `json:"email,omitempty"`
	Linktree    string `json:"linktree,omitempty"`
}

// Stats is the follower/engagement triple reported per commenter by the
// async enrichment job. Nil fields mean the fetch for that commenter
// failed.
type Stats struct {
	Followers *int `json:"followers"`
	Following *int `json:"following"`
	Likes     *int `json:"likes"`
}

// PendingCommenter identifies one enrichment job input. Index is the
// commenter's position in the originally harvested list so partial
// results stay addressable by the caller.
type PendingCommenter struct {
	Username string `json:"username"`
	URL      string `json:"url"`
	Index    int    `json:"index"`
}

// EnrichmentResult is what the async job publishes to the result store.
// Stats keys are the decimal form of the original commenter index.
type EnrichmentResult struct {
	Done  bool             `json:"done"`
	Stats map[string]Stats `json:"stats"`
}

// Result is the full answer to a GetInfo call. On failure only Success
// and Error are meaningful.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	URL         string `json:"url"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Bio         string `json:"bio"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	Likes       int    `json:"likes"`
	VideoCount  int    `json:"video_count"`

	TargetPostURL string      `json:"target_post_url,omitempty"`
	TargetReason  string      `json:"target_reason,omitempty"`
	Commenters    []Commenter `json:"commenters,omitempty"`

	// StatsKey correlates the async enrichment job scheduled for
	// commenters beyond the sync cap. Empty when nothing was scheduled.
	StatsKey string `json:"stats_key,omitempty"`
}
