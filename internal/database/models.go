package database

// CivicItem represents a tracked piece of legislation.
type CivicItem struct {
	ID                   string
	BillNumber           string
	Title                string
	Summary              *string
	Status               string
	LegislativeSession   string
	Chamber              *string
	Jurisdiction         string
	Level                string
	Source               string
	SubjectTags          *string
	ExternalURL          *string
	TextURL              *string
	InactiveAt           *string
	AISummary            *string
	AIKeyPoints          []string
	AISummaryGeneratedAt *string
	LastAction           *string
	LastActionDate       *string
	CreatedAt            *string
	UpdatedAt            *string
}

// ItemSource is the cached document resolution for a civic item.
// At most one row per item; rows older than the freshness window are
// treated as stale and not reused.
type ItemSource struct {
	CivicItemID      string
	DocURL           *string
	DocKind          *string
	ResolutionStatus string // "resolved" or "not_found"
	CheckedAt        string
	Notes            *string
	LastError        *string
}

// StagingTopic is a machine-generated topic classification awaiting review.
type StagingTopic struct {
	ID                 int64
	CivicItemID        string
	Slug               string
	Title              string
	Summary            *string
	Badge              *string
	CTALabel           *string
	CTAURL             *string
	Priority           int
	Confidence         *float64
	TriggerSnippet     *string
	ReasonSummary      *string
	AISource           string
	ReviewStatus       string
	IsComplete         bool
	ValidationErrors   []string
	LegislativeSession *string
	CreatedAt          *string
	UpdatedAt          *string
}

// AuditEntry is one append-only review-audit row.
type AuditEntry struct {
	ID             int64
	StagingID      int64
	Action         string
	PreviousStatus *string
	NewStatus      *string
	Reviewer       *string
	Notes          *string
	CreatedAt      *string
}

// HotTopic is a published, externally visible legislative topic.
type HotTopic struct {
	Slug      string
	Title     string
	Summary   *string
	Badge     *string
	CTALabel  *string
	CTAURL    *string
	Priority  int
	IsActive  bool
	CreatedAt *string
	UpdatedAt *string
}

// Thread is a town-hall discussion thread.
type Thread struct {
	ID         string
	UserID     string
	VoterID    *string
	County     *string
	Title      string
	Prompt     string
	BillID     *string
	TopicSlugs *string
	CreatedAt  string
}

// Post is a reply inside a town-hall thread.
type Post struct {
	ID        string
	ThreadID  string
	UserID    string
	VoterID   *string
	Body      string
	CreatedAt string
}

// Event is a community event listing.
type Event struct {
	ID           int64
	UserID       *string
	Name         string
	Date         string
	Location     *string
	Description  *string
	Sponsor      *string
	ContactEmail *string
	ContactPhone *string
	Lat          *float64
	Lng          *float64
	PDFKey       *string
	PDFHash      *string
	Source       *string
	CreatedAt    *string
}

// VerifiedUser links a platform user to a matched voter registration record.
type VerifiedUser struct {
	UserID  string
	VoterID *string
	County  *string
	House   *string
	Senate  *string
	Status  string
}

// Legislator is a state legislator row used for delegation lookups.
type Legislator struct {
	ID             int64
	Name           string
	Chamber        string
	DistrictNumber string
	DistrictLabel  *string
	ContactEmail   *string
	ContactPhone   *string
	WebsiteURL     *string
	Bio            *string
}

// StagingStats counts staging records by review status.
type StagingStats struct {
	Status     string
	Total      int
	Complete   int
	Incomplete int
}

// Stats contains aggregate database statistics for the status command.
type Stats struct {
	CivicItems     int
	ActiveItems    int
	WithSummary    int
	StagingPending int
	HotTopics      int
	Threads        int
	Events         int
}
