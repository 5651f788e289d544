package ultrastar

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Assets are the media files to be copied into the song folder. Empty
// paths are skipped. Each copied asset registers its metadata tag on the
// song, so assets must be placed before the chart txt is written.
type Assets struct {
	Audio           string
	BackgroundImage string
	BackgroundVideo string
	Cover           string
	OffVocal        string
	Vocals          string
}

var unsafeNameChars = regexp.MustCompile(`[^\w\-.() ]+`)

// folds diacritics to their base letters so folder names survive
// filesystems and sharing sites that mangle non-ASCII
var nameFolder = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// FolderName derives the song folder name from artist and title, folded
// and stripped to filesystem-safe characters.
func FolderName(artist, title string) string {
	name := artist + " - " + title
	if folded, _, err := transform.String(nameFolder, name); err == nil {
		name = folded
	}
	name = unsafeNameChars.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// WriteSongFolder creates the song folder under outputDir, copies every
// supplied asset in under the chart's naming convention, records the
// matching metadata tags and finally writes the chart txt. The folder
// must not already exist; nothing is overwritten.
func WriteSongFolder(outputDir string, song *Song, assets Assets) (string, error) {
	name := FolderName(song.Meta("ARTIST"), song.Meta("TITLE"))
	if name == "" {
		return "", fmt.Errorf("song has no usable artist/title for a folder name")
	}

	folder := filepath.Join(outputDir, name)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.Mkdir(folder, 0755); err != nil {
		return "", fmt.Errorf("failed to create song folder: %w", err)
	}

	copies := []struct {
		tag    string
		path   string
		suffix string
	}{
		{"MP3", assets.Audio, ""},
		{"BACKGROUND", assets.BackgroundImage, ""},
		{"VIDEO", assets.BackgroundVideo, ""},
		{"COVER", assets.Cover, " [CO]"},
		{"INSTRUMENTAL", assets.OffVocal, " [INSTR]"},
		{"VOCALS", assets.Vocals, " [VOC]"},
	}

	for _, c := range copies {
		if c.path == "" {
			continue
		}
		target := name + c.suffix + filepath.Ext(c.path)
		if err := copyFile(c.path, filepath.Join(folder, target)); err != nil {
			return "", err
		}
		song.SetMeta(c.tag, target)
	}

	chartPath := filepath.Join(folder, name+".txt")
	if err := os.WriteFile(chartPath, []byte(song.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write chart file: %w", err)
	}

	return folder, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
