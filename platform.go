package social_archiver

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/mirrorbeam/social-archiver/generic"
	"github.com/mirrorbeam/social-archiver/internal/media"
)

var (
	ErrDuplicatePlatform = errors.New("duplicate platform name")
	ErrInvalidPlatform   = errors.New("invalid platform")
	ErrNoMatch           = errors.New("no platform matched the URL")
	ErrUnknownPlatform   = errors.New("unknown platform")
)

var (
	PriorityHighest int16 = math.MinInt16
	PriorityDefault int16 = 0
	PriorityLowest  int16 = math.MaxInt16
)

// A ContentID is the stable identity of a piece of content: the platform that
// hosts it plus the platform's own ID for it. Two URLs that reference the same
// underlying content yield the same ContentID. Derivation is pure URL-shape
// matching, so a ContentID can be computed without any network I/O.
type ContentID struct {
	Platform string
	ID       string
}

func (c ContentID) String() string {
	return fmt.Sprintf("%s:%s", c.Platform, c.ID)
}

// MatchFunc extracts the platform-scoped content ID from a parsed URL, or
// returns an error describing why the URL is not recognised.
type MatchFunc = func(*url.URL) (string, error)

// CaptionFunc maps an extraction metadata record to a Caption.
type CaptionFunc = func(*media.Info) Caption

// ClassifyFunc decides the ContentType of an item from its original URL and
// extraction metadata.
type ClassifyFunc = func(rawURL string, info *media.Info) ContentType

// A Platform bundles everything the archiver knows about one supported site:
// how to recognise its URLs, what extraction format to request, how to build a
// caption from its metadata, and how to classify its content.
type Platform struct {
	Name  string
	Match MatchFunc
	// Priority of the matcher, lower (including negative) means matching earlier.
	Priority int16
	// DefaultFormat is the format selector passed to the extraction backend.
	DefaultFormat string
	Caption       CaptionFunc
	Classify      ClassifyFunc
}

func (p Platform) WithPriority(priority int16) Platform {
	p.Priority = priority
	return p
}

// A PlatformRegistry is a collection of Platform instances which can be used to
// identify URLs. The supported platform set is small and closed, so lookup is a
// straight priority-ordered scan.
type PlatformRegistry struct {
	platforms   []*Platform
	platformMap map[string]*Platform
}

// Add registers a Platform with the PlatformRegistry. Platform.Name and
// Platform.Match must be set, and Platform.Name must be unique within the
// PlatformRegistry.
func (r *PlatformRegistry) Add(p Platform) error {
	if r.platformMap == nil {
		r.platformMap = make(map[string]*Platform)
	}
	if p.Name == "" || p.Match == nil {
		return ErrInvalidPlatform
	}
	if _, ok := r.platformMap[p.Name]; ok {
		return ErrDuplicatePlatform
	}
	r.platformMap[p.Name] = &p
	r.platforms = append(r.platforms, r.platformMap[p.Name])
	r.sortByPriority()
	return nil
}

// MustAdd wraps Add but panics if there is an error.
func (r *PlatformRegistry) MustAdd(p Platform) {
	generic.Unwrap_(r.Add(p))
}

// Get returns the named Platform, or ErrUnknownPlatform.
func (r *PlatformRegistry) Get(name string) (*Platform, error) {
	if p, ok := r.platformMap[name]; ok {
		return p, nil
	}
	return nil, ErrUnknownPlatform
}

// List returns the names of registered platforms in priority order.
func (r *PlatformRegistry) List() []string {
	names := make([]string, 0, len(r.platforms))
	for _, p := range r.platforms {
		names = append(names, p.Name)
	}
	return names
}

// ExtractID matches a URL against each Platform in priority order, returning
// the derived ContentID, or ErrNoMatch wrapping each platform's reason.
func (r *PlatformRegistry) ExtractID(rawURL string) (ContentID, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ContentID{}, fmt.Errorf("%w: %v", ErrNoMatch, err)
	}
	result := ErrNoMatch
	for _, p := range r.platforms {
		if id, err := p.Match(parsed); err == nil && id != "" {
			return ContentID{Platform: p.Name, ID: id}, nil
		} else if err != nil {
			result = multierror.Append(result, multierror.Prefix(err, fmt.Sprintf("[%v]", p.Name)))
		}
	}
	return ContentID{}, result
}

// DetectPlatform returns the name of the first platform that recognises the
// URL, or ErrNoMatch.
func (r *PlatformRegistry) DetectPlatform(rawURL string) (string, error) {
	id, err := r.ExtractID(rawURL)
	if err != nil {
		return "", err
	}
	return id.Platform, nil
}

// SetPriority adjusts the priority of a named Platform.
func (r *PlatformRegistry) SetPriority(name string, priority int16) error {
	if p, ok := r.platformMap[name]; ok {
		p.Priority = priority
		r.sortByPriority()
		return nil
	}
	return ErrUnknownPlatform
}

func (r *PlatformRegistry) sortByPriority() {
	sort.SliceStable(r.platforms, func(i, j int) bool {
		return r.platforms[i].Priority < r.platforms[j].Priority
	})
}

var DefaultPlatformRegistry PlatformRegistry
