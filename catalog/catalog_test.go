package catalog

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostfound/config"
	"lostfound/types"
)

func TestNewLocalStoreCreatesCategoryDirs(t *testing.T) {
	base := t.TempDir()
	_, err := NewLocalStore(base)
	require.NoError(t, err)

	for _, c := range types.Categories() {
		info, err := os.Stat(filepath.Join(base, string(c)))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLocalStoreListEntries(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	dir := store.CategoryDir(types.CategoryGadget)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "phone.png"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "laptop.jpg"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte("c"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	names, err := store.ListEntries(context.Background(), types.CategoryGadget)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"phone.png", "laptop.jpg"}, names)

	names, err = store.ListEntries(context.Background(), types.CategoryAccessory)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalStoreMissingDirectoryIsEmpty(t *testing.T) {
	store := &LocalStore{basePath: filepath.Join(t.TempDir(), "missing")}

	names, err := store.ListEntries(context.Background(), types.CategoryGadget)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ok, err := store.Exists(ctx, types.CategoryAccessory, "ring.png")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveEntry(ctx, types.CategoryAccessory, "ring.png", []byte("ring")))

	ok, err = store.Exists(ctx, types.CategoryAccessory, "ring.png")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := store.ReadEntry(ctx, types.CategoryAccessory, "ring.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("ring"), data)

	names, err := store.ListEntries(ctx, types.CategoryAccessory)
	require.NoError(t, err)
	assert.Equal(t, []string{"ring.png"}, names)

	require.NoError(t, store.DeleteEntry(ctx, types.CategoryAccessory, "ring.png"))
	require.NoError(t, store.DeleteEntry(ctx, types.CategoryAccessory, "ring.png"))

	_, err = store.ReadEntry(ctx, types.CategoryAccessory, "ring.png")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "../secret.png", `a\b.png`, "x/y.png"} {
		_, err := store.ReadEntry(ctx, types.CategoryGadget, name)
		assert.ErrorIs(t, err, ErrInvalidFilename, name)
		assert.ErrorIs(t, store.SaveEntry(ctx, types.CategoryGadget, name, nil), ErrInvalidFilename, name)
	}
}

func TestLocalStoreAcceptsDottedNames(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, upload := range []string{"my..photo.png", "ring...jpg"} {
		name, err := SanitizeFilename(upload)
		require.NoError(t, err, upload)
		assert.Equal(t, upload, name)

		require.NoError(t, store.SaveEntry(ctx, types.CategoryGadget, name, []byte(name)))

		ok, err := store.Exists(ctx, types.CategoryGadget, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}

	dir := store.CategoryDir(types.CategoryGadget)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a..b.png"), []byte("ab"), 0644))

	names, err := store.ListEntries(ctx, types.CategoryGadget)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"my..photo.png", "ring...jpg", "a..b.png"}, names)

	for _, name := range names {
		_, err := store.ReadEntry(ctx, types.CategoryGadget, name)
		assert.NoError(t, err, name)
	}
}

func TestLocalStoreHonoursCancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.ListEntries(ctx, types.CategoryGadget)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../../etc/passwd", "etc_passwd"},
		{"i contain cool \xfcml\xe4uts.txt", "i_contain_cool_mluts.txt"},
		{"  spaced   out.png ", "spaced_out.png"},
		{"_hidden.png", "hidden.png"},
		{"lost-ring_02.JPG", "lost-ring_02.JPG"},
	}

	for _, tt := range tests {
		got, err := SanitizeFilename(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := SanitizeFilename("../..")
	assert.ErrorIs(t, err, ErrInvalidFilename)
}

func TestNewSelectsBackend(t *testing.T) {
	c, err := New(config.StorageConfig{Type: "local", BasePath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, c)

	c, err = New(config.StorageConfig{Type: "s3", Bucket: "items", Region: "auto", Endpoint: "http://localhost:9000"})
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, c)

	_, err = New(config.StorageConfig{Type: "ftp"})
	assert.Error(t, err)

	_, err = New(config.StorageConfig{Type: "s3"})
	assert.Error(t, err)
}

// fakeS3 serves objects from a map; unimplemented calls panic through the
// nil embedded interface
type fakeS3 struct {
	s3iface.S3API
	objects  map[string][]byte
	pageSize int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), pageSize: 2}
}

func (f *fakeS3) ListObjectsV2PagesWithContext(_ aws.Context, in *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, _ ...request.Option) error {
	prefix := aws.StringValue(in.Prefix)
	var keys []string
	for k := range f.objects {
		rest := strings.TrimPrefix(k, prefix)
		if strings.HasPrefix(k, prefix) && !strings.Contains(rest, "/") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for start := 0; start < len(keys) || start == 0; start += f.pageSize {
		end := start + f.pageSize
		if end > len(keys) {
			end = len(keys)
		}
		page := &s3.ListObjectsV2Output{}
		for _, k := range keys[start:end] {
			page.Contents = append(page.Contents, &s3.Object{Key: aws.String(k)})
		}
		if !fn(page, end == len(keys)) || end == len(keys) {
			break
		}
	}
	return nil
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.NewRequestFailure(awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil), 404, "req")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObjectWithContext(_ aws.Context, in *s3.HeadObjectInput, _ ...request.Option) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[aws.StringValue(in.Key)]; !ok {
		return nil, awserr.NewRequestFailure(awserr.New("NotFound", "not found", nil), 404, "req")
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3StoreListEntries(t *testing.T) {
	client := newFakeS3()
	client.objects["inventory/gadget/a.png"] = []byte("a")
	client.objects["inventory/gadget/b.png"] = []byte("b")
	client.objects["inventory/gadget/c.png"] = []byte("c")
	client.objects["inventory/gadget/.keep"] = nil
	client.objects["inventory/gadget/old/d.png"] = []byte("d")
	client.objects["inventory/accessory/e.png"] = []byte("e")

	store := NewS3StoreWithClient(client, "items", "/inventory/")
	names, err := store.ListEntries(context.Background(), types.CategoryGadget)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png", "c.png"}, names)
}

func TestS3StoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	store := NewS3StoreWithClient(client, "items", "inventory")

	ok, err := store.Exists(ctx, types.CategoryAccessory, "watch.png")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveEntry(ctx, types.CategoryAccessory, "watch.png", []byte("watch")))
	assert.Contains(t, client.objects, "inventory/accessory/watch.png")

	ok, err = store.Exists(ctx, types.CategoryAccessory, "watch.png")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := store.ReadEntry(ctx, types.CategoryAccessory, "watch.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("watch"), data)

	require.NoError(t, store.DeleteEntry(ctx, types.CategoryAccessory, "watch.png"))
	_, err = store.ReadEntry(ctx, types.CategoryAccessory, "watch.png")
	assert.Error(t, err)
}
