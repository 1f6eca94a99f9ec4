package corpus

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kailas-cloud/vidsearch/internal/domain/item"
)

// Hash field names of a stored item.
const (
	fieldTitle        = "title"
	fieldDescription  = "description"
	fieldLocation     = "location"
	fieldLocationKey  = "location_key"
	fieldEmbedding    = "embedding"
	fieldThumbnailURL = "thumbnail_url"
	fieldVideoURL     = "video_url"
	fieldUserID       = "user_id"
	fieldCreatedAt    = "created_at"
)

var errBadEmbedding = errors.New("bad embedding encoding")

// buildHashFields converts a domain Item into a flat map[string]string for HSET.
func buildHashFields(it *item.Item) map[string]string {
	m := map[string]string{
		fieldTitle:       it.Title(),
		fieldDescription: it.Description(),
		fieldLocation:    it.Location(),
		fieldLocationKey: it.LocationKey(),
		fieldCreatedAt:   it.CreatedAt().UTC().Format(time.RFC3339Nano),
	}
	if it.HasEmbedding() {
		m[fieldEmbedding] = encodeEmbedding(it.Embedding())
	}
	if v := it.ThumbnailURL(); v != "" {
		m[fieldThumbnailURL] = v
	}
	if v := it.VideoURL(); v != "" {
		m[fieldVideoURL] = v
	}
	if v := it.UserID(); v != "" {
		m[fieldUserID] = v
	}
	return m
}

// parseHashFields converts a flat hash map back into a domain Item.
// An undecodable embedding is dropped and reported via embErr; the item is still returned.
func parseHashFields(id string, m map[string]string) (it item.Item, embErr error) {
	var embedding []float32
	if raw := m[fieldEmbedding]; raw != "" {
		embedding, embErr = decodeEmbedding(raw)
	}

	var createdAt time.Time
	if raw := m[fieldCreatedAt]; raw != "" {
		// A bad timestamp only loses display metadata.
		createdAt, _ = time.Parse(time.RFC3339Nano, raw)
	}

	locationKey := m[fieldLocationKey]
	if locationKey == "" {
		locationKey = item.NormalizeLocation(m[fieldLocation])
	}

	return item.Reconstruct(
		id,
		m[fieldTitle],
		m[fieldDescription],
		m[fieldLocation],
		locationKey,
		embedding,
		m[fieldThumbnailURL],
		m[fieldVideoURL],
		m[fieldUserID],
		createdAt,
	), embErr
}

// encodeEmbedding serializes []float32 as base64 of little-endian float32 bytes.
func encodeEmbedding(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func decodeEmbedding(s string) ([]float32, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadEmbedding, err)
	}
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: len=%d", errBadEmbedding, len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		f := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, fmt.Errorf("%w: non-finite component at %d", errBadEmbedding, i)
		}
		v[i] = f
	}
	return v, nil
}
