package feed

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDecodeCursor(t *testing.T) {
	postID := uuid.MustParse("0190d1d4-7a4e-7c3a-9b1e-3f1f5a6b7c8d")
	at := time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC)

	tests := []struct {
		name    string
		token   string
		want    Position
		wantErr bool
	}{
		{
			name:  "timestamp only",
			token: "2024-05-01T10:05:00Z",
			want:  AtTimestamp(at),
		},
		{
			name:  "timestamp with offset",
			token: "2024-05-01T12:05:00+02:00",
			want:  AtTimestamp(at),
		},
		{
			name:  "offset plus decoded as space",
			token: "2024-05-01T12:05:00 02:00",
			want:  AtTimestamp(at),
		},
		{
			name:  "space separated date and time",
			token: "2024-05-01 12:05:00+02:00",
			want:  AtTimestamp(at),
		},
		{
			name:  "space separated without zone",
			token: "2024-05-01 10:05:00",
			want:  AtTimestamp(at),
		},
		{
			name:  "space separated with fraction",
			token: "2024-05-01 10:05:00.000",
			want:  AtTimestamp(at),
		},
		{
			name:  "bare date is midnight utc",
			token: "2024-05-01",
			want:  AtTimestamp(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:  "json wrapped composite with space for plus",
			token: `{"cursor":"2024-05-01T10:05:00.000000 00:00_` + postID.String() + `"}`,
			want:  AtPost(at, postID),
		},
		{
			name:  "zone-less timestamp is utc",
			token: "2024-05-01T10:05:00.000000",
			want:  AtTimestamp(at),
		},
		{
			name:  "composite",
			token: "2024-05-01T10:05:00Z_" + postID.String(),
			want:  AtPost(at, postID),
		},
		{
			name:  "composite with space for plus",
			token: "2024-05-01T10:05:00 00:00_" + postID.String(),
			want:  AtPost(at, postID),
		},
		{
			name:  "json wrapped timestamp",
			token: `{"cursor": "2024-05-01T10:05:00Z"}`,
			want:  AtTimestamp(at),
		},
		{
			name:  "json wrapped composite",
			token: `{"cursor":"2024-05-01T10:05:00Z_` + postID.String() + `"}`,
			want:  AtPost(at, postID),
		},
		{name: "empty", token: "", wantErr: true},
		{name: "whitespace", token: "   ", wantErr: true},
		{name: "garbage", token: "not-a-date", wantErr: true},
		{name: "bad post id", token: "2024-05-01T10:05:00Z_nope", wantErr: true},
		{name: "bad timestamp in composite", token: "yesterday_" + postID.String(), wantErr: true},
		{name: "json without cursor field", token: `{"after": "2024-05-01T10:05:00Z"}`, wantErr: true},
		{name: "json cursor not a string", token: `{"cursor": 42}`, wantErr: true},
		{name: "malformed json", token: `{"cursor": }`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCursor(tt.token)
			if tt.wantErr {
				require.Error(t, err)
				var cerr *CursorError
				assert.True(t, errors.As(err, &cerr), "expected *CursorError, got %T", err)
				assert.Equal(t, NoPosition, got.Kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.True(t, tt.want.Timestamp.Equal(got.Timestamp), "timestamp %s != %s", got.Timestamp, tt.want.Timestamp)
			assert.Equal(t, tt.want.PostID, got.PostID)
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	postID := uuid.Must(uuid.NewV7())
	ts := time.Date(2024, 5, 1, 15, 35, 12, 123456000, loc)

	for _, pos := range []Position{AtTimestamp(ts), AtPost(ts, postID)} {
		t.Run(pos.Kind.String(), func(t *testing.T) {
			got, err := DecodeCursor(pos.Encode())
			require.NoError(t, err)
			assert.Equal(t, pos.Kind, got.Kind)
			assert.True(t, ts.Equal(got.Timestamp))
			assert.Equal(t, pos.PostID, got.PostID)
		})
	}
}

func TestEncodeIsUTC(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 5, 0, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "2024-05-01T10:05:00Z", EncodeTimestamp(ts))

	id := uuid.MustParse("0190d1d4-7a4e-7c3a-9b1e-3f1f5a6b7c8d")
	assert.Equal(t, "2024-05-01T10:05:00Z_0190d1d4-7a4e-7c3a-9b1e-3f1f5a6b7c8d", EncodeComposite(ts, id))
}

func TestPositionNarrow(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC)
	id := uuid.Must(uuid.NewV7())

	narrowed := AtPost(ts, id).Narrow(TimestampOnly)
	assert.Equal(t, TimestampOnly, narrowed.Kind)
	assert.Equal(t, uuid.Nil, narrowed.PostID)

	kept := AtTimestamp(ts).Narrow(Composite)
	assert.Equal(t, TimestampOnly, kept.Kind)

	assert.True(t, Position{}.Narrow(Composite).IsZero())
}

func TestParseCursorIsLenient(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	t.Run("empty token starts from top silently", func(t *testing.T) {
		assert.True(t, ParseCursor("", logger).IsZero())
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("malformed token starts from top and warns", func(t *testing.T) {
		assert.True(t, ParseCursor("not-a-date", logger).IsZero())
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "not-a-date", logs.All()[0].ContextMap()["cursor"])
	})

	t.Run("valid token decodes", func(t *testing.T) {
		pos := ParseCursor("2024-05-01T10:05:00Z", logger)
		assert.Equal(t, TimestampOnly, pos.Kind)
	})

	t.Run("nil logger", func(t *testing.T) {
		assert.True(t, ParseCursor("garbage", nil).IsZero())
	})
}
