package layout

// HeaderFunc draws the repeating header of a freshly started page
type HeaderFunc func(p *Page)

// Cursor tracks the write position in a document. Every renderer threads
// the same cursor; it alone decides when a new page starts.
type Cursor struct {
	doc    *Document
	page   *Page
	y      float64
	top    float64
	bottom float64
	header HeaderFunc
}

// NewCursor returns a cursor over doc. No page exists until the first
// NewPage, EnsureSpace or Draw call.
func NewCursor(doc *Document, header HeaderFunc) *Cursor {
	return &Cursor{
		doc:    doc,
		top:    TopMargin,
		bottom: BottomMargin,
		header: header,
	}
}

// NewPage starts a page, redraws the header and resets y to the top margin
func (c *Cursor) NewPage() error {
	p, err := c.doc.AddPage()
	if err != nil {
		return err
	}
	if c.header != nil {
		c.header(p)
	}
	c.page = p
	c.y = c.top
	return nil
}

// EnsureSpace starts a new page when needed more points do not fit above
// the bottom margin. It reports whether a page break occurred.
func (c *Cursor) EnsureSpace(needed float64) (bool, error) {
	if c.page != nil && c.y+needed <= c.limit() {
		return false, nil
	}
	if err := c.NewPage(); err != nil {
		return false, err
	}
	return true, nil
}

// Advance moves the cursor down. Negative amounts are ignored so y never
// decreases within a page.
func (c *Cursor) Advance(h float64) {
	if h > 0 {
		c.y += h
	}
}

// Draw appends primitives to the current page. Primitives reaching below
// the bottom margin are rejected; callers reserve space with EnsureSpace.
func (c *Cursor) Draw(prims ...Primitive) error {
	if c.doc.finalized {
		return ErrFinalized
	}
	if c.page == nil {
		if err := c.NewPage(); err != nil {
			return err
		}
	}
	for _, p := range prims {
		if _, bottom := p.Extent(); bottom > c.limit() {
			return ErrOutOfBounds
		}
	}
	c.page.Items = append(c.page.Items, prims...)
	return nil
}

// Remaining is the vertical space left above the bottom margin
func (c *Cursor) Remaining() float64 {
	if c.page == nil {
		return 0
	}
	return c.limit() - c.y
}

func (c *Cursor) Y() float64 { return c.y }

// Page returns the current page, nil before the first page
func (c *Cursor) Page() *Page { return c.page }

// PageIndex returns the zero-based index of the current page, -1 before the
// first page
func (c *Cursor) PageIndex() int {
	if c.page == nil {
		return -1
	}
	return c.page.Index
}

// Width is the usable width between the side margins
func (c *Cursor) Width() float64 {
	return c.doc.Width - 2*SideMargin
}

func (c *Cursor) Document() *Document { return c.doc }

func (c *Cursor) limit() float64 {
	return c.doc.Height - c.bottom
}
