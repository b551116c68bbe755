package domain

// Page is an immutable view of a pagination session handed to renderers.
type Page struct {
	Items   []string
	Current int
	Last    int
	Size    int
}

// LastPage returns ceil(total/size), never less than one.
func LastPage(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}

	return (total + size - 1) / size
}

// Offset is the zero-based index of the first item on the current page.
func (p Page) Offset() int {
	return (p.Current - 1) * p.Size
}

// Visible returns the items on the current page.
func (p Page) Visible() []string {
	start := p.Offset()
	if start >= len(p.Items) {
		return nil
	}

	end := start + p.Size
	if end > len(p.Items) {
		end = len(p.Items)
	}

	return p.Items[start:end]
}

// Renderer turns a page into content. It must be a pure function of the page.
type Renderer func(p Page) Content

type PageRequest struct {
	// Chat is where the first page is sent.
	Chat Chat
	// Anchor, when set, is an existing message that is edited in place instead of sending a new one.
	// Any session already anchored there is superseded.
	Anchor   *MessageRef
	Owner    Actor
	Items    []string
	Render   Renderer
	PageSize int
}
