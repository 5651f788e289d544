package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"karachart/internal/audio"
	"karachart/internal/config"
	"karachart/internal/ffmpeg"
	"karachart/internal/kara"
	"karachart/internal/logging"
	"karachart/internal/overlap"
	"karachart/internal/pitch"
	"karachart/internal/subtitle"
	"karachart/internal/ultrastar"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert karaoke subtitles into an UltraStar song chart",
	Long: `Convert timed karaoke subtitles into an UltraStar song folder.

The subtitles come either from a local .ass file or from a kara.moe song
page, in which case the lyrics and media are downloaded and the audio
track is extracted automatically.

An UltraStar chart carries a single vocal line per player, so lines that
overlap in time have to be dealt with. By default overlaps are kept and
flagged; the resolution flags choose a different policy:

  --resolve-overlaps   pick a line to discard per overlap, interactively
  --filter-styles      discard whole subtitle styles until one remains
  --duet               keep two styles and chart them as a duet

Examples:
  karachart convert -s song.ass -c cover.jpg --audio song.mp3
  karachart convert -k https://kara.moe/kara/some-song/abcd-1234 -c cover.jpg
  karachart convert -s song.ass -c cover.jpg --duet --karaoke-bpm 6000 --song-bpm 1500`,
	Args: cobra.NoArgs,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().
		StringP("kara-url", "k", "", "kara.moe song page URL to fetch subtitles and media from")
	convertCmd.Flags().
		StringP("sub-file", "s", "", "Local karaoke subtitle file (.ass)")
	convertCmd.Flags().
		StringP("cover", "c", "", "Cover image for the song (required)")
	convertCmd.Flags().
		String("background", "", "Background image")
	convertCmd.Flags().
		String("video", "", "Background video")
	convertCmd.Flags().
		String("audio", "", "Audio file to use instead of the downloaded media")
	convertCmd.Flags().
		String("off-vocal", "", "Instrumental track: a local file or a kara.moe URL")
	convertCmd.Flags().
		String("vocals", "", "Vocals-only track: a local file or a kara.moe URL")
	convertCmd.Flags().
		String("title", "", "Song title (defaults to the fetched or file name)")
	convertCmd.Flags().
		String("artist", "", "Song artist (defaults to the fetched name)")
	convertCmd.Flags().
		Bool("tv-sized", false, `Mark the song as TV sized; appends "(TV)" to the title`)
	convertCmd.Flags().
		Bool("force-dialogue", false, "Read Dialogue subtitle events even when Comment events exist")
	convertCmd.Flags().
		Bool("autopitch", false, "Run ultrastar_pitch on the finished chart")
	convertCmd.Flags().
		Bool("no-normalize", false, "Skip audio loudness normalisation during extraction")
	convertCmd.Flags().
		Bool("ignore-overlaps", false, "Keep overlapping lines in the chart untouched")
	convertCmd.Flags().
		Bool("resolve-overlaps", false, "Resolve overlaps interactively, one discarded line at a time")
	convertCmd.Flags().
		Bool("filter-styles", false, "Discard whole subtitle styles until a single one remains")
	convertCmd.Flags().
		Bool("duet", false, "Chart two subtitle styles as a two player duet")
	convertCmd.MarkFlagsMutuallyExclusive(
		"ignore-overlaps", "resolve-overlaps", "filter-styles", "duet")
	convertCmd.Flags().
		Float64("karaoke-bpm", 0, "BPM written to the chart (default 1500)")
	convertCmd.Flags().
		Float64("song-bpm", 0, "Actual song BPM; the karaoke BPM must be an integer multiple of it")
	convertCmd.Flags().
		String("ffmpeg", "", "Path to the ffmpeg binary")
	convertCmd.Flags().
		StringP("output", "o", "", "Directory the song folder is created in")
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	settings := loadSettings()

	raw := config.Raw{}
	raw.KaraURL, _ = cmd.Flags().GetString("kara-url")
	raw.SubtitlePath, _ = cmd.Flags().GetString("sub-file")
	raw.CoverPath, _ = cmd.Flags().GetString("cover")
	raw.BackgroundPath, _ = cmd.Flags().GetString("background")
	raw.VideoPath, _ = cmd.Flags().GetString("video")
	raw.AudioPath, _ = cmd.Flags().GetString("audio")
	raw.OffVocal, _ = cmd.Flags().GetString("off-vocal")
	raw.Vocals, _ = cmd.Flags().GetString("vocals")
	raw.TVSized, _ = cmd.Flags().GetBool("tv-sized")
	raw.ForceDialogue, _ = cmd.Flags().GetBool("force-dialogue")
	raw.GeneratePitches, _ = cmd.Flags().GetBool("autopitch")
	raw.KaraokeBPM, _ = cmd.Flags().GetFloat64("karaoke-bpm")
	raw.SongBPM, _ = cmd.Flags().GetFloat64("song-bpm")
	raw.OutputDir, _ = cmd.Flags().GetString("output")
	raw.OverlapMode = overlapModeFlag(cmd)

	// settings supply defaults; flags always win
	if raw.KaraokeBPM == 0 {
		raw.KaraokeBPM = settings.KaraokeBPM
	}
	if raw.OutputDir == "" {
		raw.OutputDir = settings.OutputDir
	}
	noNormalize, _ := cmd.Flags().GetBool("no-normalize")
	raw.Normalize = !noNormalize
	if !cmd.Flags().Changed("no-normalize") && settings.Normalize != nil {
		raw.Normalize = *settings.Normalize
	}
	ffmpegOverride, _ := cmd.Flags().GetString("ffmpeg")
	if ffmpegOverride == "" {
		ffmpegOverride = settings.FFmpegPath
	}

	cfg, err := config.Assemble(raw)
	if err != nil {
		return err
	}

	runID := uuid.NewString()[:8]
	log := logger.With("run", runID)

	workDir, err := os.MkdirTemp("", "karachart-"+runID+"-*")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	run := &conversion{
		cfg:      cfg,
		log:      log,
		workDir:  workDir,
		ffmpeg:   ffmpegOverride,
		prompter: NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
	}
	if settings.NoColor {
		run.prompter.fancy = false
	}

	title, _ := cmd.Flags().GetString("title")
	artist, _ := cmd.Flags().GetString("artist")
	folder, err := run.execute(ctx, title, artist)
	if err != nil {
		return err
	}

	absFolder, _ := filepath.Abs(folder)
	fmt.Fprintf(cmd.OutOrStdout(), "Song folder created: %s\n", absFolder)
	return nil
}

// conversion carries the state of one convert run through its stages.
type conversion struct {
	cfg      *config.RunConfig
	log      *logging.Logger
	workDir  string
	ffmpeg   string
	prompter *Prompter

	client *kara.Client
}

func (r *conversion) execute(ctx context.Context, title, artist string) (string, error) {
	cfg := r.cfg

	subPath := cfg.SubtitlePath
	assets := ultrastar.Assets{
		Cover:           cfg.CoverPath,
		BackgroundImage: cfg.BackgroundPath,
		BackgroundVideo: cfg.VideoPath,
	}

	var info *kara.SongInfo
	audioSource := cfg.AudioPath
	offVocalSource := cfg.OffVocal
	vocalsSource := cfg.Vocals

	if cfg.Remote() {
		id := kara.SongID(cfg.KaraURL)
		r.log.Infow("Fetching song metadata", "id", id)

		var err error
		info, err = r.karaClient().FetchSong(ctx, id, offVocalSource == "")
		if err != nil {
			return "", fmt.Errorf("failed to fetch song metadata: %w", err)
		}

		r.log.Infow("Downloading song files",
			"lyrics", info.SubFile,
			"media", info.MediaFile,
		)
		subPath, err = r.karaClient().DownloadFile(ctx, info.SubFile, r.workDir)
		if err != nil {
			return "", fmt.Errorf("failed to download lyrics: %w", err)
		}
		if audioSource == "" {
			audioSource, err = r.karaClient().DownloadFile(ctx, info.MediaFile, r.workDir)
			if err != nil {
				return "", fmt.Errorf("failed to download media: %w", err)
			}
		}
		if offVocalSource == "" && info.OffVocalMedia != "" {
			r.log.Infow("Found an off vocal version", "media", info.OffVocalMedia)
			offVocalSource, err = r.karaClient().DownloadFile(ctx, info.OffVocalMedia, r.workDir)
			if err != nil {
				return "", fmt.Errorf("failed to download off vocal media: %w", err)
			}
		}
	}

	if audioSource != "" {
		path, err := r.prepareTrack(ctx, audioSource, "audio.mp3")
		if err != nil {
			return "", fmt.Errorf("failed to prepare audio track: %w", err)
		}
		assets.Audio = path
	}
	if offVocalSource != "" {
		path, err := r.prepareTrack(ctx, offVocalSource, "instrumental.mp3")
		if err != nil {
			return "", fmt.Errorf("failed to prepare off vocal track: %w", err)
		}
		assets.OffVocal = path
	}
	if vocalsSource != "" {
		path, err := r.prepareTrack(ctx, vocalsSource, "vocals.mp3")
		if err != nil {
			return "", fmt.Errorf("failed to prepare vocals track: %w", err)
		}
		assets.Vocals = path
	}

	lines, err := subtitle.Load(subPath, cfg.ForceDialogue)
	if err != nil {
		return "", fmt.Errorf("failed to load subtitles: %w", err)
	}
	r.log.Infow("Loaded subtitle lines", "count", len(lines))

	song := ultrastar.NewSong()
	if err := r.chartLines(song, lines); err != nil {
		return "", err
	}

	r.applyMetadata(song, info, title, artist, subPath)

	folder, err := ultrastar.WriteSongFolder(cfg.OutputDir, song, assets)
	if err != nil {
		return "", err
	}
	r.log.Infow("Wrote song folder", "folder", folder)

	if cfg.GeneratePitches {
		r.log.Infow("Generating pitches")
		if err := pitch.Generate(ctx, folder); err != nil {
			return "", fmt.Errorf("pitch generation failed (the unpitched chart remains in %s): %w", folder, err)
		}
	}

	return folder, nil
}

// chartLines applies the configured overlap policy and appends the
// surviving lines to the song as notes.
func (r *conversion) chartLines(song *ultrastar.Song, lines []subtitle.Line) error {
	cfg := r.cfg
	converter := &ultrastar.Converter{Song: song, BPM: cfg.KaraokeBPM}

	switch cfg.Mode {
	case config.OverlapDuet:
		parts, names, ok, err := overlap.SplitDuet(lines, r.prompter)
		if err != nil {
			return err
		}
		if !ok {
			r.log.Warnw("Only one subtitle style present, charting as a solo song")
		}
		players := []ultrastar.Player{ultrastar.P1, ultrastar.P2}
		for i, part := range parts {
			converter.AppendLines(r.sortChronological(part), players[i])
			if ok {
				song.SetMeta("DUETSINGERP"+strconv.Itoa(i+1), names[i])
			}
		}

	case config.OverlapStyle:
		filtered, prompted, err := overlap.FilterByStyle(lines, r.prompter)
		if err != nil {
			return err
		}
		if prompted {
			r.log.Infow("Filtered to a single style", "lines", len(filtered))
		}
		converter.AppendLines(r.sortChronological(filtered), ultrastar.P1)

	case config.OverlapIndividual:
		clean, err := r.resolvePart(lines)
		if err != nil {
			return err
		}
		converter.AppendLines(clean, ultrastar.P1)

	default:
		converter.AppendLines(r.sortChronological(lines), ultrastar.P1)
	}

	if cfg.BPMMultiplier > 1 {
		for _, player := range []ultrastar.Player{ultrastar.P1, ultrastar.P2} {
			song.AdjustNotes(cfg.BPMMultiplier, player)
		}
	}
	return nil
}

// sortChronological orders the lines by start time for charting. Style
// selection and duet splitting make no guarantee about overlaps inside a
// surviving style, so any that remain are kept and flagged.
func (r *conversion) sortChronological(lines []subtitle.Line) []subtitle.Line {
	sorted := append([]subtitle.Line(nil), lines...)
	subtitle.SortByStart(sorted)
	if clusters := overlap.Detect(sorted); len(clusters) > 0 {
		r.log.Warnw("Overlapping lines kept in the chart; it may need manual editing",
			"clusters", len(clusters))
	}
	return sorted
}

// resolvePart runs interactive overlap resolution over one set of lines
// and returns the survivors in chronological order.
func (r *conversion) resolvePart(lines []subtitle.Line) ([]subtitle.Line, error) {
	clusters := overlap.Detect(lines)
	if len(clusters) > 0 {
		r.log.Infow("Overlapping lines need manual resolution", "clusters", len(clusters))
	}
	clean, decisions, err := overlap.Resolve(lines, clusters, overlap.Interactive, r.prompter)
	if err != nil {
		return nil, err
	}
	for _, decision := range decisions {
		r.log.Debugw("Resolved overlap cluster",
			"members", decision.Cluster,
			"discarded", decision.Discarded,
		)
	}
	subtitle.SortByStart(clean)
	return clean, nil
}

func (r *conversion) applyMetadata(song *ultrastar.Song, info *kara.SongInfo, title, artist, subPath string) {
	cfg := r.cfg

	if info != nil {
		if title == "" {
			title = info.Title
		}
		if artist == "" {
			artist = info.Artists
		}
		if info.Authors != "" {
			song.SetMeta("CREATOR", info.Authors)
		}
		if info.Language != "" {
			song.SetMeta("LANGUAGE", info.Language)
		}
		if info.Year != 0 {
			song.SetMeta("YEAR", strconv.Itoa(info.Year))
		}
		if info.Tags != "" {
			song.SetMeta("TAGS", info.Tags)
		}
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(subPath), filepath.Ext(subPath))
	}
	if artist == "" {
		artist = "Unknown Artist"
	}
	if cfg.TVSized {
		title += " (TV)"
	}

	song.SetMeta("TITLE", title)
	song.SetMeta("ARTIST", artist)
	song.SetMeta("BPM", strconv.FormatFloat(cfg.KaraokeBPM, 'f', -1, 64))
	song.SetMeta("GAP", "0")

	song.SetMeta("KARACHART-VERSION", Version)
	if info != nil {
		song.SetMeta("KARACHART-KARAID", info.ID)
		song.SetMeta("PROVIDEDBY", kara.DefaultBaseURL)
		song.SetMeta("AUDIOURL", cfg.KaraURL)
	}
}

// prepareTrack turns a track source, either a local media file or a kara
// song URL, into an mp3 in the work directory.
func (r *conversion) prepareTrack(ctx context.Context, source, name string) (string, error) {
	if config.IsKaraURL(source) {
		id := kara.SongID(source)
		info, err := r.karaClient().FetchSong(ctx, id, false)
		if err != nil {
			return "", fmt.Errorf("failed to fetch track metadata: %w", err)
		}
		source, err = r.karaClient().DownloadFile(ctx, info.MediaFile, r.workDir)
		if err != nil {
			return "", fmt.Errorf("failed to download track media: %w", err)
		}
	}

	// an mp3 supplied directly is copied into the song folder as-is
	if strings.EqualFold(filepath.Ext(source), ".mp3") && !r.cfg.Normalize {
		return source, nil
	}

	ffmpegPath, err := ffmpeg.FFmpegPath(r.ffmpeg)
	if err != nil {
		return "", err
	}

	opts := audio.ExtractOptions{FFmpegPath: ffmpegPath}
	if r.cfg.Normalize {
		gain, err := audio.DetectGain(source, ffmpegPath)
		if err != nil {
			r.log.Warnw("Loudness detection failed, skipping normalisation", "error", err)
		} else if gain != 0 {
			r.log.Infow("Normalising track loudness", "track", name, "gain_db", gain)
			opts.GainDB = gain
		}
	}

	dest := filepath.Join(r.workDir, name)
	if audio.IsAudioFile(source) {
		r.log.Infow("Re-encoding audio track", "source", source)
	} else {
		r.log.Infow("Extracting audio from media", "source", source)
	}
	if err := audio.Extract(source, dest, opts); err != nil {
		return "", err
	}
	return dest, nil
}

func (r *conversion) karaClient() *kara.Client {
	if r.client == nil {
		r.client = kara.NewClient()
	}
	return r.client
}

// loadSettings reads the persistent defaults file, falling back to the
// built-in defaults when it is missing or unreadable.
func loadSettings() config.Settings {
	path, err := config.SettingsPath()
	if err != nil {
		return config.Settings{OutputDir: "output", KaraokeBPM: config.DefaultKaraokeBPM}
	}
	settings, err := config.LoadSettings(path)
	if err != nil && logger != nil {
		logger.Warnw("Ignoring malformed settings file", "path", path, "error", err)
	}
	return settings
}

func overlapModeFlag(cmd *cobra.Command) string {
	for flag, mode := range map[string]config.OverlapMode{
		"ignore-overlaps":  config.OverlapIgnore,
		"resolve-overlaps": config.OverlapIndividual,
		"filter-styles":    config.OverlapStyle,
		"duet":             config.OverlapDuet,
	} {
		if set, _ := cmd.Flags().GetBool(flag); set {
			return string(mode)
		}
	}
	return ""
}
