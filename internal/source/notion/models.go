package notion

// queryResponse is one page of a database query.
type queryResponse struct {
	Object     string `json:"object"`
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type queryRequest struct {
	PageSize    int    `json:"page_size"`
	StartCursor string `json:"start_cursor,omitempty"`
}

type page struct {
	ID             string              `json:"id"`
	CreatedTime    string              `json:"created_time"`
	LastEditedTime string              `json:"last_edited_time"`
	Cover          *fileRef            `json:"cover"`
	Icon           *fileRef            `json:"icon"`
	Properties     map[string]property `json:"properties"`
}

type fileRef struct {
	Type     string    `json:"type"`
	External *external `json:"external"`
}

type external struct {
	URL string `json:"url"`
}

// property is the union of the property shapes this system reads. Exactly one
// branch is populated per property, depending on its schema type.
type property struct {
	Title    []richText   `json:"title"`
	RichText []richText   `json:"rich_text"`
	Select   *selectValue `json:"select"`
	Status   *selectValue `json:"status"`
	Date     *dateValue   `json:"date"`
	Email    *string      `json:"email"`
	URL      *string      `json:"url"`
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type selectValue struct {
	Name string `json:"name"`
}

type dateValue struct {
	Start string `json:"start"`
}
