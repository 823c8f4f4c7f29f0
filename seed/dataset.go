package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"tracksvc/model"

	"gopkg.in/yaml.v3"
)

//go:embed tracks.yaml
var defaultTracksYAML []byte

// Dataset produces a fresh copy of the records to seed. Each call returns new
// values because inserting assigns IDs to them.
type Dataset func() ([]*model.Track, error)

type record struct {
	Name        string `yaml:"name"`
	Genre       string `yaml:"genre"`
	ReleaseYear int    `yaml:"release_year"`
	Artist      string `yaml:"artist"`
	Album       string `yaml:"album"`
	Duration    int    `yaml:"duration"`
}

// Default is the fixed dataset shipped with the binary.
func Default() Dataset {
	return func() ([]*model.Track, error) {
		return decode(bytes.NewReader(defaultTracksYAML))
	}
}

// FromFile reads the dataset from a YAML file on every call.
func FromFile(path string) Dataset {
	return func() ([]*model.Track, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open seed file: %w", err)
		}
		defer f.Close()

		tracks, err := decode(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return tracks, nil
	}
}

func decode(r io.Reader) ([]*model.Track, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var records []record
	if err := dec.Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("seed dataset is empty")
		}
		return nil, fmt.Errorf("failed to decode seed dataset: %w", err)
	}

	tracks := make([]*model.Track, 0, len(records))
	for i, rec := range records {
		if rec.Name == "" {
			return nil, fmt.Errorf("seed record %d has no name", i)
		}
		tracks = append(tracks, &model.Track{
			Name:        rec.Name,
			Genre:       rec.Genre,
			ReleaseYear: rec.ReleaseYear,
			Artist:      rec.Artist,
			Album:       rec.Album,
			Duration:    rec.Duration,
		})
	}
	return tracks, nil
}
