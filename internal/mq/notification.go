package mq

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/weiawesome/pdf-thumbnail/internal/handler"
)

// notification is the S3 / MinIO bucket notification body.
type notification struct {
	Records []struct {
		EventName string `json:"eventName"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key  string `json:"key"`
				Size int64  `json:"size"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// Filter selects which notification records are handled. An empty
// EventNames accepts every event.
type Filter struct {
	EventNames []string
	KeyPrefix  string
}

// ParseRecords decodes a notification and returns the records passing f.
// Keys are returned raw; the prefix is matched against the decoded key.
func ParseRecords(value []byte, f Filter) ([]handler.Record, error) {
	var n notification
	if err := json.Unmarshal(value, &n); err != nil {
		return nil, fmt.Errorf("unmarshal bucket notification: %w", err)
	}

	records := make([]handler.Record, 0, len(n.Records))
	for _, r := range n.Records {
		if len(f.EventNames) > 0 && !slices.Contains(f.EventNames, r.EventName) {
			continue
		}

		if f.KeyPrefix != "" {
			key, err := handler.DecodeKey(r.S3.Object.Key)
			if err != nil || !strings.HasPrefix(key, f.KeyPrefix) {
				continue
			}
		}

		records = append(records, handler.Record{
			Bucket: r.S3.Bucket.Name,
			Key:    r.S3.Object.Key,
		})
	}

	return records, nil
}
