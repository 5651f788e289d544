package kara

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBaseURL is the public kara instance.
const DefaultBaseURL = "https://kara.moe"

// Client talks to a kara server's public API and file downloads.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    DefaultBaseURL,
	}
}

// NewClientWithBase targets a different kara instance; used in tests.
func NewClientWithBase(baseURL string) *Client {
	client := NewClient()
	client.baseURL = strings.TrimRight(baseURL, "/")
	return client
}

// SongID extracts the song identifier from a kara song page URL.
func SongID(songURL string) string {
	parts := strings.Split(strings.TrimRight(songURL, "/"), "/")
	return parts[len(parts)-1]
}

// SongInfo is the slice of a kara API response the conversion needs.
type SongInfo struct {
	ID        string
	Title     string
	SubFile   string
	MediaFile string
	Language  string
	Year      int
	Artists   string
	Authors   string
	Tags      string
	// media file of a relative whose only difference is the missing
	// vocals; empty when none was found
	OffVocalMedia string
}

// wire representation of /api/karas/<id>
type apiSong struct {
	Titles                map[string]string `json:"titles"`
	TitlesDefaultLanguage string            `json:"titles_default_language"`
	MediaFile             string            `json:"mediafile"`
	Duration              float64           `json:"duration"`
	Year                  int               `json:"year"`
	LyricsInfos           []struct {
		Default  bool   `json:"default"`
		Filename string `json:"filename"`
	} `json:"lyrics_infos"`
	Langs []struct {
		I18n map[string]string `json:"i18n"`
	} `json:"langs"`
	Singers      []named `json:"singers"`
	SingerGroups []named `json:"singergroups"`
	Authors      []named `json:"authors"`
	Series       []struct {
		Name    string            `json:"name"`
		I18n    map[string]string `json:"i18n"`
		Aliases []string          `json:"aliases"`
	} `json:"series"`
	SongTypes []struct {
		I18n map[string]string `json:"i18n"`
	} `json:"songtypes"`
	Versions []struct {
		I18n map[string]string `json:"i18n"`
	} `json:"versions"`
	Siblings []string `json:"siblings"`
	Children []string `json:"children"`
	Parents  []string `json:"parents"`
}

type named struct {
	Name string `json:"name"`
}

// FetchSong retrieves and condenses a song's metadata. When
// searchOffVocal is set, the song's relatives are walked for an
// off-vocal version of the same duration.
func (c *Client) FetchSong(ctx context.Context, id string, searchOffVocal bool) (*SongInfo, error) {
	raw, err := c.fetchRaw(ctx, id)
	if err != nil {
		return nil, err
	}

	info := &SongInfo{
		ID:        id,
		Title:     raw.Titles[raw.TitlesDefaultLanguage],
		MediaFile: raw.MediaFile,
		Year:      raw.Year,
	}

	for _, lyrics := range raw.LyricsInfos {
		if lyrics.Default {
			info.SubFile = lyrics.Filename
			break
		}
	}
	if info.SubFile == "" && len(raw.LyricsInfos) > 0 {
		info.SubFile = raw.LyricsInfos[0].Filename
	}
	if info.SubFile == "" {
		return nil, fmt.Errorf("song %s has no lyrics file", id)
	}

	if len(raw.Langs) > 0 {
		info.Language = raw.Langs[0].I18n["eng"]
	}

	// bands take priority over individual singers
	artists := raw.SingerGroups
	if len(artists) == 0 {
		artists = raw.Singers
	}
	info.Artists = joinNames(artists)
	info.Authors = joinNames(raw.Authors)
	info.Tags = buildTags(raw)

	if searchOffVocal {
		info.OffVocalMedia = c.findOffVocal(ctx, raw)
	}

	return info, nil
}

func (c *Client) fetchRaw(ctx context.Context, id string) (*apiSong, error) {
	endpoint := c.baseURL + "/api/karas/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kara API request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected kara API response: %s", resp.Status)
	}

	var raw apiSong
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode kara API response: %w", err)
	}
	return &raw, nil
}

// walks siblings, children and parents looking for an "Off Vocal"
// version with the same duration as the original
func (c *Client) findOffVocal(ctx context.Context, original *apiSong) string {
	relatives := make([]string, 0,
		len(original.Siblings)+len(original.Children)+len(original.Parents))
	relatives = append(relatives, original.Siblings...)
	relatives = append(relatives, original.Children...)
	relatives = append(relatives, original.Parents...)

	for _, relative := range relatives {
		candidate, err := c.fetchRaw(ctx, relative)
		if err != nil {
			continue
		}
		if candidate.Duration != original.Duration {
			continue
		}
		for _, version := range candidate.Versions {
			if strings.EqualFold(version.I18n["eng"], "off vocal") {
				return candidate.MediaFile
			}
		}
	}
	return ""
}

// DownloadFile fetches a lyrics or media file into dir, keyed by file
// extension the way the server splits its download routes. An already
// present file is reused untouched.
func (c *Client) DownloadFile(ctx context.Context, filename, dir string) (string, error) {
	// server-supplied names must not carry path separators out of dir
	filename = filepath.Base(filename)
	target := filepath.Join(dir, filename)
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	route := "medias"
	if strings.EqualFold(filepath.Ext(filename), ".ass") {
		route = "lyrics"
	}
	endpoint := c.baseURL + "/downloads/" + route + "/" + url.PathEscape(filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("kara download failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected kara download response: %s", resp.Status)
	}

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := out.ReadFrom(resp.Body); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return target, nil
}

func joinNames(items []named) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return strings.Join(names, ", ")
}

// series names (english first, default name when different, then
// aliases) plus song types, comma separated, commas inside names dropped
func buildTags(raw *apiSong) string {
	var parts []string
	for _, series := range raw.Series {
		name := strings.ReplaceAll(series.Name, ",", "")
		if eng, ok := series.I18n["eng"]; ok {
			eng = strings.ReplaceAll(eng, ",", "")
			parts = append(parts, eng)
			if eng != name {
				parts = append(parts, name)
			}
		} else {
			parts = append(parts, name)
		}
		for _, alias := range series.Aliases {
			parts = append(parts, strings.ReplaceAll(alias, ",", ""))
		}
	}
	for _, songType := range raw.SongTypes {
		if eng, ok := songType.I18n["eng"]; ok {
			parts = append(parts, eng)
		}
	}
	return strings.Join(parts, ", ")
}
