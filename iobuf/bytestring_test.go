package iobuf_test

import (
	"testing"
	"unicode/utf8"

	"github.com/google/gofuzz"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/iobuf"
)

func TestByteStringEqualAndCompare(t *testing.T) {
	a := iobuf.NewByteString([]byte("abc"))
	b := iobuf.NewByteString([]byte("abc"))
	c := iobuf.NewByteString([]byte("abd"))
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.Equal(t, 0, a.Compare(b))
	require.Equal(t, -1, a.Compare(c))
	require.Equal(t, 1, c.Compare(a))
}

func TestByteStringCompareIsUnsigned(t *testing.T) {
	// 0xFF must sort after 0x7F under unsigned lexicographic order, the
	// opposite of what a signed byte comparison would produce.
	hi := iobuf.NewByteString([]byte{0xFF})
	lo := iobuf.NewByteString([]byte{0x7F})
	require.Equal(t, 1, hi.Compare(lo))
	require.Equal(t, -1, lo.Compare(hi))
}

func TestByteStringEqualIgnoreCase(t *testing.T) {
	a := iobuf.NewByteString([]byte("Hello-World"))
	b := iobuf.NewByteString([]byte("hello-WORLD"))
	c := iobuf.NewByteString([]byte("hello-world!"))
	require.True(t, a.EqualIgnoreCase(b))
	require.False(t, a.EqualIgnoreCase(c))
}

func TestByteStringPrefixSuffix(t *testing.T) {
	s := iobuf.NewByteString([]byte("filename.tar.gz"))
	require.True(t, s.HasPrefix(iobuf.NewByteString([]byte("filename"))))
	require.True(t, s.HasSuffix(iobuf.NewByteString([]byte(".tar.gz"))))
	require.False(t, s.HasPrefix(iobuf.NewByteString([]byte("name"))))
	require.False(t, s.HasSuffix(iobuf.NewByteString([]byte(".zip"))))
}

func TestByteStringSubstringShares(t *testing.T) {
	s := iobuf.NewByteString([]byte("0123456789"))
	sub := s.Substring(3, 7)
	require.Equal(t, "3456", sub.Utf8())
	require.Equal(t, 4, sub.Len())
}

func TestByteStringIndexOf(t *testing.T) {
	s := iobuf.NewByteString([]byte("the quick brown fox the lazy dog"))
	needle := iobuf.NewByteString([]byte("the"))
	require.Equal(t, 0, s.IndexOf(needle, 0))
	require.Equal(t, 20, s.IndexOf(needle, 1))
	require.Equal(t, -1, s.IndexOf(needle, 21))

	require.Equal(t, 20, s.LastIndexOf(needle, len(s.Bytes())))
	require.Equal(t, 0, s.LastIndexOf(needle, 3))
	require.Equal(t, -1, s.LastIndexOf(needle, 0))
}

func TestByteStringAsciiCase(t *testing.T) {
	s := iobuf.NewByteString([]byte("MixedCase123!"))
	require.Equal(t, "mixedcase123!", s.ToAsciiLowercase().Utf8())
	require.Equal(t, "MIXEDCASE123!", s.ToAsciiUppercase().Utf8())
}

func TestByteStringHexRoundTrip(t *testing.T) {
	s := iobuf.NewByteString([]byte{0x00, 0x7f, 0xff, 0xab})
	h := s.Hex()
	require.Equal(t, "007fffab", h)
	decoded, err := iobuf.DecodeHex(h)
	require.NoError(t, err)
	require.True(t, s.Equal(decoded))

	_, err = iobuf.DecodeHex("not-hex")
	require.Error(t, err)
}

func TestByteStringBase64RoundTrip(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(0, 64)
	for i := 0; i < 50; i++ {
		var raw []byte
		f.Fuzz(&raw)
		s := iobuf.NewByteString(raw)

		std, err := iobuf.DecodeBase64(s.Base64())
		require.NoError(t, err)
		require.True(t, s.Equal(std), "standard base64 round trip for %v", raw)

		url, err := iobuf.DecodeBase64(s.Base64Url())
		require.NoError(t, err)
		require.True(t, s.Equal(url), "url-safe base64 round trip for %v", raw)
	}
}

func TestUtf8ByteStringReplacesIllFormedBytes(t *testing.T) {
	// An overlong two-byte encoding is not valid UTF-8: utf8.ValidString
	// rejects it, so each bad byte is replaced with '?' rather than
	// passed through or collapsed to a single U+FFFD.
	s := iobuf.Utf8ByteString(string([]byte{0xC0, 0xAF}))
	require.Equal(t, "??", s.Utf8())
}

func TestByteStringUtf8DecodesIllFormedBytesAsReplacementChar(t *testing.T) {
	// 0xC0 0xAF is an overlong encoding of '/': invalid, and distinct from
	// the write-direction test above, which only ever produces valid
	// output bytes. Here the raw, already-invalid bytes arrive straight
	// off the wire (e.g. via NewByteString), so Utf8 itself must replace
	// each ill-formed unit with U+FFFD rather than passing it through.
	s := iobuf.NewByteString([]byte{0xC0, 0xAF})
	require.Equal(t, string([]rune{utf8.RuneError, utf8.RuneError}), s.Utf8())
}

func TestByteStringHashStable(t *testing.T) {
	s := iobuf.NewByteString([]byte("stable"))
	h1 := s.Hash()
	h2 := s.Hash()
	require.Equal(t, h1, h2)

	other := iobuf.NewByteString([]byte("stable"))
	require.Equal(t, h1, other.Hash())
}
