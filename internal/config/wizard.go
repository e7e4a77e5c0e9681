package config

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/dooshek/voiceassist/internal/fileops"
	"github.com/dooshek/voiceassist/internal/logger"
	"github.com/dooshek/voiceassist/internal/types"
	"github.com/fatih/color"
)

// RunWizard asks for the backend settings on the terminal and saves them
func RunWizard() error {
	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		return fmt.Errorf("failed to initialize file operations: %w", err)
	}
	_, err = RunWizardWith(os.Stdin, os.Stdout, fileOps)
	return err
}

// RunWizardWith is RunWizard over explicit streams and directory
func RunWizardWith(in io.Reader, out io.Writer, fileOps fileops.FileOps) (*types.Config, error) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	reader := bufio.NewReader(in)

	bold.Fprintln(out, "\n🎙️  Welcome to the voiceassist configuration wizard!")
	fmt.Fprintln(out, "\nPress Enter to keep the value in brackets.")

	var backendURL string
	for {
		cyan.Fprintf(out, "\nBackend URL [%s]: ", types.DefaultBackendURL)
		answer, err := readAnswer(reader)
		if err != nil {
			return nil, err
		}
		if answer == "" {
			answer = types.DefaultBackendURL
		}
		if u, err := url.Parse(answer); err != nil || u.Scheme == "" || u.Host == "" {
			yellow.Fprintln(out, "That does not look like an http(s) URL, try again.")
			continue
		}
		backendURL = strings.TrimRight(answer, "/")
		break
	}

	maxSeconds := types.DefaultMaxSeconds
	for {
		cyan.Fprintf(out, "Maximum recording length in seconds [%d]: ", types.DefaultMaxSeconds)
		answer, err := readAnswer(reader)
		if err != nil {
			return nil, err
		}
		if answer == "" {
			break
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n <= 0 {
			yellow.Fprintln(out, "Please enter a positive number.")
			continue
		}
		maxSeconds = n
		break
	}

	cyan.Fprint(out, "Upload recordings as ogg instead of wav? [y/N]: ")
	answer, err := readAnswer(reader)
	if err != nil {
		return nil, err
	}
	uploadFormat := types.UploadFormatWAV
	if isYes(answer, false) {
		uploadFormat = types.UploadFormatOgg
	}

	cyan.Fprint(out, "Play audio replies automatically? [Y/n]: ")
	answer, err = readAnswer(reader)
	if err != nil {
		return nil, err
	}
	autoplay := isYes(answer, true)

	config := &types.Config{
		Backend: types.BackendConfig{
			URL:            backendURL,
			RequestTimeout: types.DefaultRequestTimeout,
		},
		Recording: types.RecordingConfig{
			MaxSeconds:   maxSeconds,
			UploadFormat: uploadFormat,
		},
		Playback: types.PlaybackConfig{
			Autoplay: &autoplay,
		},
	}

	if err := SaveTo(fileOps, config); err != nil {
		logger.Error("Failed to save config", err)
		return nil, err
	}

	green.Fprintln(out, "\n✅ Configuration saved successfully!")
	fmt.Fprintf(out, "Backend: %s\n", backendURL)
	return config, nil
}

func readAnswer(reader *bufio.Reader) (string, error) {
	response, err := reader.ReadString('\n')
	if err != nil && !(err == io.EOF && response != "") {
		if err == io.EOF {
			return "", nil
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	response = strings.TrimSpace(response)
	// Drop control characters left by terminals
	response = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, response)
	return response, nil
}

func isYes(answer string, def bool) bool {
	switch strings.ToLower(answer) {
	case "":
		return def
	case "y", "yes":
		return true
	default:
		return false
	}
}
