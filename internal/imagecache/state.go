package imagecache

// Status is the tagged state of one item's image.
type Status string

const (
	// StatusIdle: no image, never attempted.
	StatusIdle Status = "idle"
	// StatusAttemptedEmpty: attempted before, no image and no error to show.
	// Expanding it shows the "click to generate" affordance instead of fetching.
	StatusAttemptedEmpty Status = "attempted_empty"
	// StatusLoading: a fetch is in flight.
	StatusLoading Status = "loading"
	// StatusReady: an image is shown, from the cache or a fetch.
	StatusReady Status = "ready"
	// StatusFailed: the last attempt failed; the error is shown with a retry.
	StatusFailed Status = "failed"
)

// Item is one displayable entry of a day list.
type Item struct {
	Name   string
	Prompt string
}

// ItemView is a read-only copy of an item's state.
type ItemView struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Key    string `json:"cache_key"`
	Status Status `json:"status"`
	Image  string `json:"image,omitempty"`
	Error  string `json:"error,omitempty"`
	Open   bool   `json:"open"`
}

type slot struct {
	item Item
	key  string

	status Status
	image  string
	err    string
	open   bool

	// seq is bumped for every fetch issued and every regenerate; a completion
	// whose seq no longer matches is stale and dropped.
	seq uint64
}

func (s *slot) view(idx int) ItemView {
	return ItemView{
		Index:  idx,
		Name:   s.item.Name,
		Key:    s.key,
		Status: s.status,
		Image:  s.image,
		Error:  s.err,
		Open:   s.open,
	}
}
