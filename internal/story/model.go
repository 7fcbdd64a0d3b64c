package story

import (
	"encoding/json"
	"strconv"
)

// MaxProductsPerPage caps product elements on a single page.
const MaxProductsPerPage = 6

const (
	PageWidth  = 412
	PageHeight = 618
)

type ElementType string

const (
	ElementTypeShape   ElementType = "shape"
	ElementTypeImage   ElementType = "image"
	ElementTypeVideo   ElementType = "video"
	ElementTypeGif     ElementType = "gif"
	ElementTypeText    ElementType = "text"
	ElementTypeSticker ElementType = "sticker"
	ElementTypeProduct ElementType = "product"
)

// IsMedia reports whether elements of this type carry a resource.
func (t ElementType) IsMedia() bool {
	return t == ElementTypeImage || t == ElementTypeVideo || t == ElementTypeGif
}

type Story struct {
	StoryID             string            `json:"storyId"`
	Title               string            `json:"title"`
	Status              string            `json:"status"`
	Author              *Author           `json:"author,omitempty"`
	Date                *string           `json:"date"`
	Modified            string            `json:"modified,omitempty"`
	Excerpt             string            `json:"excerpt,omitempty"`
	Slug                string            `json:"slug,omitempty"`
	Link                string            `json:"link,omitempty"`
	FeaturedMedia       *FeaturedMedia    `json:"featuredMedia,omitempty"`
	GlobalStoryStyles   GlobalStoryStyles `json:"globalStoryStyles"`
	Fonts               map[string]Font   `json:"fonts,omitempty"`
	AutoAdvance         bool              `json:"autoAdvance"`
	DefaultPageDuration float64           `json:"defaultPageDuration"`
	Extra               map[string]any    `json:"-"`
}

type Author struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type FeaturedMedia struct {
	ID     ResourceID `json:"id"`
	URL    string     `json:"url"`
	Height int        `json:"height"`
	Width  int        `json:"width"`
}

type GlobalStoryStyles struct {
	Colors     []Pattern        `json:"colors"`
	TextStyles []map[string]any `json:"textStyles"`
}

type Page struct {
	ID                       string           `json:"id"`
	Elements                 []*Element       `json:"elements"`
	Animations               []*Animation     `json:"animations,omitempty"`
	Groups                   map[string]Group `json:"groups,omitempty"`
	BackgroundColor          *Pattern         `json:"backgroundColor,omitempty"`
	DefaultBackgroundElement *Element         `json:"defaultBackgroundElement,omitempty"`
	PageTemplateType         string           `json:"pageTemplateType,omitempty"`
	Advancement              *Advancement     `json:"advancement,omitempty"`
	Extra                    map[string]any   `json:"-"`
}

type Advancement struct {
	AutoAdvance  bool    `json:"autoAdvance"`
	PageDuration float64 `json:"pageDuration"`
}

type Group struct {
	Name        string `json:"name"`
	IsLocked    bool   `json:"isLocked"`
	IsCollapsed bool   `json:"isCollapsed,omitempty"`
}

type Animation struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Targets  []string `json:"targets"`
	Duration float64  `json:"duration,omitempty"`
	Delay    float64  `json:"delay,omitempty"`
	Easing   string   `json:"easing,omitempty"`
	// Delete marks an update that removes the animation with this ID.
	Delete bool `json:"delete,omitempty"`
}

// HasTarget reports whether id is one of the animation targets.
func (a *Animation) HasTarget(id string) bool {
	for _, t := range a.Targets {
		if t == id {
			return true
		}
	}
	return false
}

type Element struct {
	ID                  string        `json:"id"`
	Type                ElementType   `json:"type"`
	X                   float64       `json:"x"`
	Y                   float64       `json:"y"`
	Width               float64       `json:"width"`
	Height              float64       `json:"height"`
	RotationAngle       float64       `json:"rotationAngle"`
	Flip                *Flip         `json:"flip,omitempty"`
	Opacity             float64       `json:"opacity"`
	LockAspectRatio     bool          `json:"lockAspectRatio"`
	IsBackground        bool          `json:"isBackground,omitempty"`
	IsDefaultBackground bool          `json:"isDefaultBackground,omitempty"`
	IsLocked            bool          `json:"isLocked,omitempty"`
	IsHidden            bool          `json:"isHidden,omitempty"`
	GroupID             string        `json:"groupId,omitempty"`
	Mask                *Mask         `json:"mask,omitempty"`
	Link                *Link         `json:"link,omitempty"`
	Border              *Border       `json:"border,omitempty"`
	BorderRadius        *BorderRadius `json:"borderRadius,omitempty"`
	Overlay             *Pattern      `json:"overlay,omitempty"`
	BackgroundColor     *Pattern      `json:"backgroundColor,omitempty"`

	// media
	Resource *Resource `json:"resource,omitempty"`
	Scale    float64   `json:"scale,omitempty"`
	FocalX   float64   `json:"focalX,omitempty"`
	FocalY   float64   `json:"focalY,omitempty"`

	// text
	Content  string  `json:"content,omitempty"`
	Font     *Font   `json:"font,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`

	Product *Product `json:"product,omitempty"`
	Sticker *Sticker `json:"sticker,omitempty"`

	Extra map[string]any `json:"-"`
}

type Flip struct {
	Vertical   bool `json:"vertical"`
	Horizontal bool `json:"horizontal"`
}

type Mask struct {
	Type string `json:"type"`
}

type Link struct {
	URL  string `json:"url"`
	Desc string `json:"desc,omitempty"`
	Icon string `json:"icon,omitempty"`
}

type Border struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Color  *Color  `json:"color,omitempty"`
}

type BorderRadius struct {
	TopLeft     float64 `json:"topLeft"`
	TopRight    float64 `json:"topRight"`
	BottomRight float64 `json:"bottomRight"`
	BottomLeft  float64 `json:"bottomLeft"`
}

type Color struct {
	R int      `json:"r"`
	G int      `json:"g"`
	B int      `json:"b"`
	A *float64 `json:"a,omitempty"`
}

type GradientStop struct {
	Color    Color   `json:"color"`
	Position float64 `json:"position"`
}

// Pattern is a solid color or a gradient.
type Pattern struct {
	Type     string         `json:"type,omitempty"`
	Color    *Color         `json:"color,omitempty"`
	Stops    []GradientStop `json:"stops,omitempty"`
	Rotation float64        `json:"rotation,omitempty"`
	Alpha    *float64       `json:"alpha,omitempty"`
}

type Font struct {
	Family    string         `json:"family"`
	Service   string         `json:"service,omitempty"`
	Fallbacks []string       `json:"fallbacks,omitempty"`
	Weights   []int          `json:"weights,omitempty"`
	Styles    []string       `json:"styles,omitempty"`
	Variants  [][2]int       `json:"variants,omitempty"`
	Metrics   map[string]any `json:"metrics,omitempty"`
}

type TrimData struct {
	Original string `json:"original,omitempty"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
}

type Resource struct {
	ID              ResourceID `json:"id,omitempty"`
	Type            string     `json:"type,omitempty"`
	MimeType        string     `json:"mimeType,omitempty"`
	Src             string     `json:"src,omitempty"`
	Alt             string     `json:"alt,omitempty"`
	Width           int        `json:"width,omitempty"`
	Height          int        `json:"height,omitempty"`
	Poster          string     `json:"poster,omitempty"`
	PosterID        ResourceID `json:"posterId,omitempty"`
	BaseColor       string     `json:"baseColor,omitempty"`
	BlurHash        string     `json:"blurHash,omitempty"`
	IsPlaceholder   bool       `json:"isPlaceholder,omitempty"`
	IsMuted         bool       `json:"isMuted,omitempty"`
	IsOptimized     bool       `json:"isOptimized,omitempty"`
	Length          float64    `json:"length,omitempty"`
	LengthFormatted string     `json:"lengthFormatted,omitempty"`
	TrimData        *TrimData  `json:"trimData,omitempty"`
	CreationDate    string     `json:"creationDate,omitempty"`
}

type Product struct {
	ProductID    string `json:"productId"`
	ProductTitle string `json:"productTitle,omitempty"`
}

type Sticker struct {
	Type string `json:"type"`
}

// ResourceID accepts both numeric attachment ids and string ids of
// not-yet-uploaded media.
type ResourceID string

func (r *ResourceID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ResourceID(s)
		return nil
	}
	if string(data) == "null" {
		*r = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*r = ResourceID(n.String())
	return nil
}

func (r ResourceID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(r), 10, 64); err == nil {
		return []byte(r), nil
	}
	return json.Marshal(string(r))
}

// IsVideoPlaceholder reports whether el is a video whose media has not been
// resolved yet.
func IsVideoPlaceholder(el *Element) bool {
	return el != nil && el.Type == ElementTypeVideo && el.Resource != nil && el.Resource.IsPlaceholder
}

// ElementByID returns the element and its index, or nil and -1.
func (p *Page) ElementByID(id string) (*Element, int) {
	for i, el := range p.Elements {
		if el.ID == id {
			return el, i
		}
	}
	return nil, -1
}

// Background returns the element at index 0.
func (p *Page) Background() *Element {
	if len(p.Elements) == 0 {
		return nil
	}
	return p.Elements[0]
}
