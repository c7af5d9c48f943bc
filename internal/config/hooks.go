package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const resolutionsEnv = "THUMBNAIL_RESOLUTIONS"

// resolutionsHook decodes "small=36,large=150" (as set through
// THUMBNAIL_RESOLUTIONS) into map[string]int. Other inputs pass through.
func resolutionsHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(map[string]int{}) {
			return data, nil
		}
		return ParseResolutions(data.(string))
	}
}

// ParseResolutions parses a comma separated list of suffix=dpi pairs.
// An empty string yields an empty map.
func ParseResolutions(s string) (map[string]int, error) {
	out := make(map[string]int)
	s = strings.TrimSpace(s)
	if s == "" {
		return out, nil
	}

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		suffix, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("resolution entry %q: want suffix=dpi", pair)
		}
		dpi, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("resolution entry %q: %w", pair, err)
		}
		out[strings.TrimSpace(suffix)] = dpi
	}

	return out, nil
}

// FoldedSuffixes returns the thumbnail.resolutions keys of the YAML file at
// path that contain upper case letters. Viper lowercases map keys, so these
// suffixes do not survive loading as written. Unreadable or non-YAML files
// yield nil.
func FoldedSuffixes(path string) []string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var doc struct {
		Thumbnail struct {
			Resolutions map[string]int `yaml:"resolutions"`
		} `yaml:"thumbnail"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil
	}

	var folded []string
	for suffix := range doc.Thumbnail.Resolutions {
		if suffix != strings.ToLower(suffix) {
			folded = append(folded, suffix)
		}
	}
	sort.Strings(folded)
	return folded
}
