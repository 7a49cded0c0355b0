package values

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileHash(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "valid lowercase",
			input: strings.Repeat("ab", 32),
			want:  strings.Repeat("ab", 32),
		},
		{
			name:  "uppercase normalized",
			input: strings.Repeat("AB", 32),
			want:  strings.Repeat("ab", 32),
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  " + strings.Repeat("ab", 32) + "\n",
			want:  strings.Repeat("ab", 32),
		},
		{name: "empty", input: "", wantErr: true},
		{name: "too short", input: strings.Repeat("a", 63), wantErr: true},
		{name: "too long", input: strings.Repeat("a", 65), wantErr: true},
		{name: "non hex", input: strings.Repeat("z", 64), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewFileHash(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, h.IsEmpty())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.String())
		})
	}
}

func TestComputeFileHash(t *testing.T) {
	h1, err := ComputeFileHash([]byte("energy invoice pdf bytes"))
	require.NoError(t, err)
	h2, err := ComputeFileHash([]byte("energy invoice pdf bytes"))
	require.NoError(t, err)
	assert.True(t, h1.Equal(h2))
	assert.Len(t, h1.String(), 64)

	h3, err := ComputeFileHash([]byte("different bytes"))
	require.NoError(t, err)
	assert.False(t, h1.Equal(h3))

	_, err = ComputeFileHash(nil)
	require.Error(t, err)
}

func TestComputeCommandFingerprint(t *testing.T) {
	fp1, err := ComputeCommandFingerprint("ClassifyEvidenceCommand", "E1",
		[]byte(`{"a":1,"b":"x"}`))
	require.NoError(t, err)

	// Key order and whitespace do not matter.
	fp2, err := ComputeCommandFingerprint("ClassifyEvidenceCommand", "E1",
		[]byte(` {"b": "x", "a": 1} `))
	require.NoError(t, err)
	assert.True(t, fp1.Equal(fp2))

	// Content, target, and type all do.
	fp3, err := ComputeCommandFingerprint("ClassifyEvidenceCommand", "E1",
		[]byte(`{"a":2,"b":"x"}`))
	require.NoError(t, err)
	assert.False(t, fp1.Equal(fp3))

	fp4, err := ComputeCommandFingerprint("ClassifyEvidenceCommand", "E2",
		[]byte(`{"a":1,"b":"x"}`))
	require.NoError(t, err)
	assert.False(t, fp1.Equal(fp4))

	fp5, err := ComputeCommandFingerprint("ApproveStructuringCommand", "E1",
		[]byte(`{"a":1,"b":"x"}`))
	require.NoError(t, err)
	assert.False(t, fp1.Equal(fp5))
}

func TestComputeCommandFingerprint_EmptyAndInvalidPayload(t *testing.T) {
	fp1, err := ComputeCommandFingerprint("ClassifyEvidenceCommand", "E1", nil)
	require.NoError(t, err)
	fp2, err := ComputeCommandFingerprint("ClassifyEvidenceCommand", "E1", []byte("null"))
	require.NoError(t, err)
	assert.True(t, fp1.Equal(fp2), "absent payload canonicalizes to null")

	_, err = ComputeCommandFingerprint("ClassifyEvidenceCommand", "E1", []byte("{broken"))
	require.Error(t, err)

	_, err = ComputeCommandFingerprint("", "E1", []byte("{}"))
	require.Error(t, err)
}

func TestFingerprintRoundTrip(t *testing.T) {
	fp, err := ComputeCommandFingerprint("ClassifyEvidenceCommand", "E1", []byte(`{}`))
	require.NoError(t, err)

	restored := FingerprintFromString(fp.String())
	assert.True(t, fp.Equal(restored))
}

func TestSequenceNumber(t *testing.T) {
	first := First()
	assert.Equal(t, uint64(1), first.Value())
	assert.False(t, first.IsZero())

	next, err := first.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next.Value())
	assert.True(t, first.Before(next))
	assert.False(t, next.Before(first))

	_, err = NewSequenceNumber(0)
	require.Error(t, err)

	top := MustNewSequenceNumber(MaxSequenceNumber)
	_, err = top.Next()
	require.Error(t, err)

	var zero SequenceNumber
	assert.True(t, zero.IsZero())
	assert.Equal(t, "5", MustNewSequenceNumber(5).String())
}

func TestFileHashJSON(t *testing.T) {
	h := MustNewFileHash(strings.Repeat("ab", 32))

	raw, err := json.Marshal(h)
	require.NoError(t, err)
	assert.Equal(t, `"`+strings.Repeat("ab", 32)+`"`, string(raw))

	var decoded FileHash
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, h.Equal(decoded))

	require.Error(t, json.Unmarshal([]byte(`"not-a-hash"`), &decoded))

	var empty FileHash
	require.NoError(t, json.Unmarshal([]byte(`""`), &empty))
	assert.True(t, empty.IsEmpty())
}

func TestSequenceNumberJSON(t *testing.T) {
	raw, err := json.Marshal(MustNewSequenceNumber(42))
	require.NoError(t, err)
	assert.Equal(t, "42", string(raw))

	var decoded SequenceNumber
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, uint64(42), decoded.Value())

	require.NoError(t, json.Unmarshal([]byte("0"), &decoded))
	assert.True(t, decoded.IsZero())
}
