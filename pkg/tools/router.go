// Package tools provides the auxiliary capabilities the agent can augment
// a reply with (web search, image generation) and the routing policy that
// decides which one a transcript needs.
package tools

import "strings"

// Route identifies which capability a turn should use.
type Route int

const (
	// RoutePlain answers from the model alone.
	RoutePlain Route = iota

	// RouteSearch augments the model with fresh web results.
	RouteSearch

	// RouteImage generates an image from the transcript.
	RouteImage
)

// String returns the route name for logging.
func (r Route) String() string {
	switch r {
	case RouteSearch:
		return "search"
	case RouteImage:
		return "image"
	default:
		return "plain"
	}
}

// Router decides which capability a transcript needs.
// Implementations must be deterministic: the same transcript always maps
// to the same route.
type Router interface {
	Route(transcript string) Route
}

// searchTerms marks questions that need current information.
var searchTerms = []string{
	"latest", "news", "today", "current", "right now", "happening",
	"weather", "temperature", "score", "price", "stock",
	"update", "recent", "this week", "who won",
}

// imageTerms marks requests for visual content.
var imageTerms = []string{
	"image", "picture", "draw", "paint", "sketch", "illustration",
	"generate art", "create art", "show me what", "photo of", "wallpaper",
}

// KeywordRouter routes by case-insensitive substring match against two
// fixed keyword sets. Search takes precedence over image on overlap.
type KeywordRouter struct {
	searchTerms []string
	imageTerms  []string
}

// NewKeywordRouter creates a router with the default keyword sets.
func NewKeywordRouter() *KeywordRouter {
	return &KeywordRouter{searchTerms: searchTerms, imageTerms: imageTerms}
}

// NewKeywordRouterWithTerms creates a router with custom keyword sets.
func NewKeywordRouterWithTerms(search, image []string) *KeywordRouter {
	return &KeywordRouter{searchTerms: search, imageTerms: image}
}

// Route classifies the transcript. Exactly one route is returned.
func (r *KeywordRouter) Route(transcript string) Route {
	lower := strings.ToLower(transcript)
	for _, term := range r.searchTerms {
		if strings.Contains(lower, term) {
			return RouteSearch
		}
	}
	for _, term := range r.imageTerms {
		if strings.Contains(lower, term) {
			return RouteImage
		}
	}
	return RoutePlain
}

// Verify KeywordRouter implements Router at compile time.
var _ Router = (*KeywordRouter)(nil)
