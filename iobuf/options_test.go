package iobuf_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grailbio/iobuf"
)

func bs(s string) iobuf.ByteString { return iobuf.NewByteString([]byte(s)) }

func TestOptionsSelectLongestMatchWins(t *testing.T) {
	opts := iobuf.NewOptions(bs("GET"), bs("GE"), bs("GETA"))
	var src iobuf.Buffer
	src.WriteUtf8("GETALL")
	bsrc := iobuf.NewBufferedSource(&src)

	idx, err := bsrc.Select(opts)
	require.NoError(t, err)
	require.Equal(t, 2, idx) // "GETA" is the longest alternative that matches

	rest, err := bsrc.ReadUtf8All()
	require.NoError(t, err)
	require.Equal(t, "LL", rest)
}

func TestOptionsSelectNoMatchConsumesNothing(t *testing.T) {
	opts := iobuf.NewOptions(bs("foo"), bs("bar"))
	var src iobuf.Buffer
	src.WriteUtf8("baz")
	bsrc := iobuf.NewBufferedSource(&src)

	idx, err := bsrc.Select(opts)
	require.NoError(t, err)
	require.Equal(t, -1, idx)

	rest, err := bsrc.ReadUtf8All()
	require.NoError(t, err)
	require.Equal(t, "baz", rest)
}

func TestOptionsSelectDuplicateAlternativeKeepsEarlierIndex(t *testing.T) {
	opts := iobuf.NewOptions(bs("dup"), bs("dup"))
	var src iobuf.Buffer
	src.WriteUtf8("dup")
	bsrc := iobuf.NewBufferedSource(&src)

	idx, err := bsrc.Select(opts)
	require.NoError(t, err)
	require.Equal(t, 0, idx)
}

func TestTypedOptionsSelect(t *testing.T) {
	keys := []iobuf.ByteString{bs("yes"), bs("no")}
	values := []bool{true, false}
	topts := iobuf.NewTypedOptions(keys, values)

	var src iobuf.Buffer
	src.WriteUtf8("no")
	bsrc := iobuf.NewBufferedSource(&src)

	v, ok, err := topts.Select(bsrc)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, v)
}

func TestTypedOptionsSelectMismatchPanics(t *testing.T) {
	require.Panics(t, func() {
		iobuf.NewTypedOptions([]iobuf.ByteString{bs("a")}, []int{1, 2})
	})
}
