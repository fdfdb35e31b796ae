package render

import "fmt"

// Layout scaling constants. Scale is tracked in whole percent so repeated
// steps do not accumulate float error.
const (
	layoutThreshold     = 3
	baseScalePercent    = 95
	scaleStepPercent    = 2
	minScalePercent     = 50
	baseArticleHeightPx = 40
	articleHeightStepPx = 5
	minArticleHeightPx  = 20
)

// Layout is the print-time fit for a given number of articles.
type Layout struct {
	Scale           float64 `json:"scale"`
	ArticleHeightPx int     `json:"articleHeightPx"`
}

// LayoutFor returns the layout for n articles. Up to three articles print
// at 0.95 with 40px blocks; each further article takes 0.02 off the scale
// and 5px off the block height, stopping at 0.50 and 20px.
func LayoutFor(n int) Layout {
	extra := n - layoutThreshold
	if extra < 0 {
		extra = 0
	}
	scale := max(baseScalePercent-scaleStepPercent*extra, minScalePercent)
	height := max(baseArticleHeightPx-articleHeightStepPx*extra, minArticleHeightPx)
	return Layout{Scale: float64(scale) / 100, ArticleHeightPx: height}
}

// CSS returns the print-scoped rules for l. Article blocks use a minimum
// height so long descriptions grow rather than clip.
func (l Layout) CSS() string {
	return fmt.Sprintf(`@page { size: 8.5in 11in; margin: 0; }
.page { transform: scale(%.2f); transform-origin: top center; overflow: visible; }
.article { min-height: %dpx; padding: 6px 0; margin-bottom: 6px; }
.disclaimer { font-size: 6pt; line-height: 1.1; }
`, l.Scale, l.ArticleHeightPx)
}
