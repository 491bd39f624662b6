package domain

// DefaultChunk bounds how many float-ordered candidates are resolved per
// paintindex when a ScrapeRequest does not specify one.
const DefaultChunk = 5

// ScrapeRequest is the input of a paint rescrape.
type ScrapeRequest struct {
	Defindex *int    `json:"defindex" binding:"required" validate:"required,gte=0"`
	Slot     *string `json:"slot,omitempty"              validate:"omitempty,min=1,max=64"`
	Chunk    *int    `json:"chunk,omitempty"             validate:"omitempty,gte=1,lte=100"`
}

// ChunkOrDefault returns the requested chunk size, or def when unset.
func (r ScrapeRequest) ChunkOrDefault(def int) int {
	if r.Chunk == nil || *r.Chunk <= 0 {
		return def
	}
	return *r.Chunk
}

// AssetRequest is the input of image and texture rebuilds.
type AssetRequest struct {
	Defindex *int `json:"defindex" binding:"required" validate:"required,gte=0"`
}

// CategoryEntry is one element of the upstream defindex list. TypeName is a
// pointer so a missing field can be told apart from an empty one.
type CategoryEntry struct {
	UUID     string  `json:"uuid"`
	Name     string  `json:"name"`
	TypeName *string `json:"type_name"`
	Defindex int     `json:"defindex"`
}

// PaintindexEntry is one element of the upstream paintindex list.
type PaintindexEntry struct {
	Paintindex int `json:"paintindex"`
}

// Candidate is a float-ordered handle used only to fetch the full record.
type Candidate struct {
	UUID string `json:"uuid"`
}

// VariantRecord is the full upstream record of one item instance.
// UVType is empty when the upstream omits the marker.
type VariantRecord struct {
	UUID       string
	ItemName   string
	WearName   string
	SkinName   string
	RarityName string
	UVType     string
	Defindex   int
	Paintindex int
	Texture    string
	FloatValue float64
	Material   string
	UVScale    string
}

// Envelope is the response shape shared by every command.
type Envelope[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// ScrapeReport is the outcome of a paint rescrape. Skipped lists the
// paintindexes that had no eligible candidate. Failed marks an aborted run;
// Message then carries the cause.
type ScrapeReport struct {
	Message string
	Count   int
	Skipped []int
	Failed  bool
}

// AssetResult reports the outcome of an image or texture rebuild.
type AssetResult struct {
	PaintCount int `json:"paintCount"`
}

// Envelope messages.
const (
	MsgProcessed = "Data has proceeded"
	MsgNoData    = "No data to process"
	MsgSuccess   = "Success"
	MsgOK        = "OK"
)
