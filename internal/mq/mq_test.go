package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/pdf-thumbnail/internal/handler"
)

const sampleNotification = `{
  "EventName": "s3:ObjectCreated:Put",
  "Key": "uploads/docs/my+file%281%29.pdf",
  "Records": [
    {
      "eventName": "s3:ObjectCreated:Put",
      "eventTime": "2024-05-01T10:00:00.000Z",
      "s3": {
        "bucket": {"name": "uploads"},
        "object": {"key": "docs/my+file%281%29.pdf", "size": 1024, "contentType": "application/pdf"}
      }
    },
    {
      "eventName": "s3:ObjectRemoved:Delete",
      "s3": {"bucket": {"name": "uploads"}, "object": {"key": "docs/old.pdf"}}
    },
    {
      "eventName": "s3:ObjectCreated:CompleteMultipartUpload",
      "s3": {"bucket": {"name": "uploads"}, "object": {"key": "other/big.pdf"}}
    }
  ]
}`

func TestParseRecords(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []handler.Record
	}{
		{
			name: "no filter",
			want: []handler.Record{
				{Bucket: "uploads", Key: "docs/my+file%281%29.pdf"},
				{Bucket: "uploads", Key: "docs/old.pdf"},
				{Bucket: "uploads", Key: "other/big.pdf"},
			},
		},
		{
			name:   "event names",
			filter: Filter{EventNames: []string{"s3:ObjectCreated:Put", "s3:ObjectCreated:CompleteMultipartUpload"}},
			want: []handler.Record{
				{Bucket: "uploads", Key: "docs/my+file%281%29.pdf"},
				{Bucket: "uploads", Key: "other/big.pdf"},
			},
		},
		{
			name:   "prefix matches decoded key",
			filter: Filter{EventNames: []string{"s3:ObjectCreated:Put"}, KeyPrefix: "docs/my file"},
			want:   []handler.Record{{Bucket: "uploads", Key: "docs/my+file%281%29.pdf"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecords([]byte(sampleNotification), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRecordsInvalidJSON(t *testing.T) {
	_, err := ParseRecords([]byte("{"), Filter{})
	assert.Error(t, err)
}

type fakeHandler struct {
	records []handler.Record
	result  handler.Result
	err     error
}

func (f *fakeHandler) Handle(_ context.Context, records []handler.Record) (handler.Result, error) {
	f.records = append(f.records, records...)
	return f.result, f.err
}

type recordingPublisher struct {
	events []*ThumbnailProcessedEvent
	err    error
}

func (p *recordingPublisher) PublishThumbnailProcessed(_ context.Context, e *ThumbnailProcessedEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestDispatchPublishesOutcomes(t *testing.T) {
	h := &fakeHandler{result: handler.Result{Processed: []handler.Outcome{{
		SourceBucket:      "uploads",
		SourceKey:         "docs/my file(1).pdf",
		DestinationBucket: "thumbs",
		Thumbnails:        []string{"my file(1)-thumbnail.png"},
	}}}}
	pub := &recordingPublisher{}
	d := NewDispatcher(h, pub, Filter{EventNames: []string{"s3:ObjectCreated:Put"}})
	d.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, d.Dispatch(context.Background(), []byte(sampleNotification)))

	assert.Equal(t, []handler.Record{{Bucket: "uploads", Key: "docs/my+file%281%29.pdf"}}, h.records)
	require.Len(t, pub.events, 1)
	assert.Equal(t, &ThumbnailProcessedEvent{
		Source:     ObjectRef{Bucket: "uploads", Key: "docs/my file(1).pdf"},
		Thumbnails: []ObjectRef{{Bucket: "thumbs", Key: "my file(1)-thumbnail.png"}},
		Timestamp:  1700000000,
	}, pub.events[0])

	raw, err := json.Marshal(pub.events[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":{"bucket":"uploads","key":"docs/my file(1).pdf"},"thumbnails":[{"bucket":"thumbs","key":"my file(1)-thumbnail.png"}],"timestamp":1700000000}`, string(raw))
}

func TestDispatchSkipsFilteredMessages(t *testing.T) {
	h := &fakeHandler{}
	d := NewDispatcher(h, nil, Filter{EventNames: []string{"s3:ObjectCreated:Copy"}})

	require.NoError(t, d.Dispatch(context.Background(), []byte(sampleNotification)))
	assert.Empty(t, h.records)
}

func TestDispatchReturnsHandlerError(t *testing.T) {
	boom := errors.New("conversion failed")
	h := &fakeHandler{err: boom}
	pub := &recordingPublisher{}
	d := NewDispatcher(h, pub, Filter{})

	err := d.Dispatch(context.Background(), []byte(sampleNotification))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, pub.events)
}

func TestDispatchPublishFailureIsNotFatal(t *testing.T) {
	h := &fakeHandler{result: handler.Result{Processed: []handler.Outcome{{SourceBucket: "a", SourceKey: "b.pdf"}}}}
	pub := &recordingPublisher{err: errors.New("broker down")}
	d := NewDispatcher(h, pub, Filter{})

	assert.NoError(t, d.Dispatch(context.Background(), []byte(sampleNotification)))
	assert.Len(t, pub.events, 1)
}
