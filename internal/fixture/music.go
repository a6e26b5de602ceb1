package fixture

import (
	"context"
	"errors"

	"github.com/danderson/nirum"
)

// Unknown and BadRequest are the variants of HelloError, the declared
// error of MusicService.GetMusicByArtistName.
type (
	Unknown    struct{}
	BadRequest struct{}
)

var (
	UnknownType    = nirum.NewVariantType("unknown", "", nil, func(map[string]any) (nirum.Variant, error) { return Unknown{}, nil })
	BadRequestType = nirum.NewVariantType("bad_request", "", nil, func(map[string]any) (nirum.Variant, error) { return BadRequest{}, nil })
	HelloErrorType = nirum.NewUnionType("hello_error", UnknownType, BadRequestType)
)

func (Unknown) VariantType() *nirum.VariantType { return UnknownType }
func (Unknown) Field(string) any                { return nil }
func (Unknown) Error() string                   { return "hello_error: unknown" }

func (BadRequest) VariantType() *nirum.VariantType { return BadRequestType }
func (BadRequest) Field(string) any                { return nil }
func (BadRequest) Error() string                   { return "hello_error: bad request" }

// MusicService maps artists to their music.
var MusicService = nirum.NewService("music_service",
	&nirum.Method{
		Name:   "get_music_by_artist_name",
		Params: []nirum.Param{{Name: "artist_name", Type: nirum.Text}},
		Return: nirum.List(nirum.Text),
		Errors: HelloErrorType,
	},
	&nirum.Method{
		Name:   "incorrect_return",
		Return: nirum.Text,
	},
	&nirum.Method{
		Name:   "get_artist_by_music",
		Behind: "find_artist",
		Params: []nirum.Param{{Name: "music", Behind: "norae", Type: nirum.Text}},
		Return: nirum.Text,
	},
	&nirum.Method{
		Name:   "raise_application_error_request",
		Return: nirum.Text,
	},
)

// Music is the default catalog.
var Music = map[string][]string{
	"damien rice": {"9 crimes", "Elephant"},
	"ed sheeran":  {"Thinking out loud", "Photograph"},
}

// MusicImpl implements MusicService over a catalog.
type MusicImpl struct {
	Catalog map[string][]string
}

// GetMusicByArtistName returns the music of an artist. The artist
// "error" fails with Unknown, and artists not in the catalog fail
// with BadRequest.
func (m *MusicImpl) GetMusicByArtistName(ctx context.Context, artist string) ([]any, error) {
	if artist == "error" {
		return nil, Unknown{}
	}
	music, ok := m.Catalog[artist]
	if !ok {
		return nil, BadRequest{}
	}
	ret := make([]any, 0, len(music))
	for _, s := range music {
		ret = append(ret, s)
	}
	return ret, nil
}

// IncorrectReturn returns an integer despite declaring text.
func (m *MusicImpl) IncorrectReturn(ctx context.Context) (any, error) {
	return int64(1), nil
}

// GetArtistByMusic returns the artist of a piece of music, or "none".
func (m *MusicImpl) GetArtistByMusic(ctx context.Context, music string) (string, error) {
	for artist, titles := range m.Catalog {
		for _, title := range titles {
			if title == music {
				return artist, nil
			}
		}
	}
	return "none", nil
}

// RaiseApplicationErrorRequest fails with an undeclared error.
func (m *MusicImpl) RaiseApplicationErrorRequest(ctx context.Context) (string, error) {
	return "", errors.New("hello world")
}

// Register installs m's methods on srv.
func (m *MusicImpl) Register(srv *nirum.Server) {
	srv.Handle("get_music_by_artist_name", m.GetMusicByArtistName)
	srv.Handle("incorrect_return", m.IncorrectReturn)
	srv.Handle("get_artist_by_music", m.GetArtistByMusic)
	srv.Handle("raise_application_error_request", m.RaiseApplicationErrorRequest)
}

// NewMusicServer returns a server for MusicService backed by the
// default catalog.
func NewMusicServer(opts nirum.ServerOptions) *nirum.Server {
	srv := nirum.NewServer(MusicService, opts)
	(&MusicImpl{Catalog: Music}).Register(srv)
	return srv
}
