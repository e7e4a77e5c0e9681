package audio

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/dooshek/voiceassist/internal/logger"
	"github.com/dooshek/voiceassist/pkg/wav"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var ErrFFmpegNotInstalled = fmt.Errorf("FFmpeg is not installed. Please install FFmpeg or upload recordings as wav")

func init() {
	ffmpeg.LogCompiledCommand = false
}

// CheckFFmpeg reports whether the ffmpeg binary is available
func CheckFFmpeg() error {
	if err := exec.Command("ffmpeg", "-version").Run(); err != nil {
		return ErrFFmpegNotInstalled
	}
	return nil
}

// Clip is an encoded recording ready for upload
type Clip struct {
	Data     []byte
	Filename string
	Duration time.Duration
}

// Encoder turns captured PCM into an upload payload
type Encoder struct {
	format  wav.Format
	ogg     bool
	workDir string
	keep    bool
}

// NewEncoder builds an encoder. With ogg set, recordings are transcoded with
// ffmpeg inside workDir; keep leaves the intermediate files there.
func NewEncoder(format wav.Format, ogg bool, workDir string, keep bool) *Encoder {
	return &Encoder{format: format, ogg: ogg, workDir: workDir, keep: keep}
}

// Encode packages pcm as wav, or as ogg vorbis when configured
func (e *Encoder) Encode(pcm []byte) (Clip, error) {
	wavData, err := wav.Encode(pcm, e.format)
	if err != nil {
		return Clip{}, fmt.Errorf("error converting to WAV: %w", err)
	}

	clip := Clip{
		Data:     wavData,
		Filename: "recording.wav",
		Duration: e.format.Duration(len(pcm)),
	}
	if !e.ogg {
		return clip, nil
	}

	ogg, err := e.transcode(wavData)
	if err != nil {
		// wav is always accepted, so fall back rather than lose the recording
		logger.Warnf("Ogg conversion failed, uploading wav: %v", err)
		return clip, nil
	}
	clip.Data = ogg
	clip.Filename = "recording.ogg"
	return clip, nil
}

func (e *Encoder) transcode(wavData []byte) ([]byte, error) {
	if err := CheckFFmpeg(); err != nil {
		return nil, err
	}

	stamp := time.Now().Format("2006-01-02_15-04-05.000")
	wavPath := filepath.Join(e.workDir, fmt.Sprintf("recording_%s.wav", stamp))
	oggPath := filepath.Join(e.workDir, fmt.Sprintf("recording_%s.ogg", stamp))

	if err := os.WriteFile(wavPath, wavData, 0o644); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}
	if !e.keep {
		defer os.Remove(wavPath)
		defer os.Remove(oggPath)
	}

	start := time.Now()
	err := ffmpeg.Input(wavPath).
		Output(oggPath, ffmpeg.KwArgs{
			"loglevel":          "quiet",
			"acodec":            "libvorbis",
			"b:a":               "24k",
			"ar":                fmt.Sprint(e.format.SampleRate),
			"compression_level": "5",
			"threads":           "auto",
		}).
		OverWriteOutput().
		Run()
	if err != nil {
		return nil, fmt.Errorf("error converting to Ogg Vorbis: %w", err)
	}

	data, err := os.ReadFile(oggPath)
	if err != nil {
		return nil, fmt.Errorf("read ogg: %w", err)
	}
	logger.Debugf("Conversion from WAV to Ogg Vorbis took %d ms, %.2f kB", time.Since(start).Milliseconds(), float64(len(data))/1024)
	return data, nil
}
