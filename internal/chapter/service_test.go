// Copyright (c) 2026 Mangetsu. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangetsu/internal/chapter"
	"github.com/taibuivan/mangetsu/internal/ingest"
	"github.com/taibuivan/mangetsu/internal/platform/apperr"
	"github.com/taibuivan/mangetsu/internal/title"
	"github.com/taibuivan/mangetsu/pkg/pointer"
)

// fakeContentStore is an in-memory content store with injectable latency and
// failures. Locators map back to the stored bytes so tests can verify which
// file landed on which page.
type fakeContentStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	puts      int
	failFirst int
	failAll   bool
	maxJitter time.Duration
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{objects: make(map[string][]byte)}
}

func (store *fakeContentStore) Put(_ context.Context, data []byte, namespace, name string) (string, error) {
	store.mu.Lock()
	store.puts++
	attempt := store.puts
	jitter := store.maxJitter
	store.mu.Unlock()

	// Randomized completion order across concurrent uploads
	if jitter > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(jitter))))
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if store.failAll || attempt <= store.failFirst {
		return "", errors.New("storage timeout")
	}

	locator := "https://cdn.test/" + namespace + "/" + name
	store.objects[locator] = data
	return locator, nil
}

func (store *fakeContentStore) Delete(_ context.Context, locator string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.objects, locator)
	return nil
}

func (store *fakeContentStore) putCount() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.puts
}

// failNext makes the next n puts fail, counting from the current total.
func (store *fakeContentStore) failNext(n int) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.failFirst = store.puts + n
}

func (store *fakeContentStore) dataAt(locator string) []byte {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.objects[locator]
}

func (store *fakeContentStore) has(locator string) bool {
	store.mu.Lock()
	defer store.mu.Unlock()
	_, ok := store.objects[locator]
	return ok
}

// hasData reports whether any stored object carries exactly these bytes,
// regardless of the locator it landed under.
func (store *fakeContentStore) hasData(data string) bool {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, stored := range store.objects {
		if string(stored) == data {
			return true
		}
	}
	return false
}

// fakeChapterRepo is an in-memory [chapter.Repository].
type fakeChapterRepo struct {
	mu         sync.Mutex
	chapters   map[string]*chapter.Chapter
	failUpdate bool
}

func newFakeChapterRepo() *fakeChapterRepo {
	return &fakeChapterRepo{chapters: make(map[string]*chapter.Chapter)}
}

func (repo *fakeChapterRepo) Create(_ context.Context, c *chapter.Chapter) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, existing := range repo.chapters {
		if existing.TitleID == c.TitleID && existing.Number == c.Number {
			return apperr.Conflict("Chapter number already exists for this title")
		}
	}
	copied := *c
	copied.Pages = append([]chapter.Page(nil), c.Pages...)
	repo.chapters[c.ID] = &copied
	return nil
}

func (repo *fakeChapterRepo) FindByID(_ context.Context, id string) (*chapter.Chapter, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	found, ok := repo.chapters[id]
	if !ok {
		return nil, apperr.NotFound("Chapter")
	}
	copied := *found
	copied.Pages = append([]chapter.Page(nil), found.Pages...)
	return &copied, nil
}

func (repo *fakeChapterRepo) ListByTitle(_ context.Context, titleID string, limit, offset int) ([]*chapter.Chapter, int, error) {
	return nil, 0, nil
}

func (repo *fakeChapterRepo) ExistsByNumber(_ context.Context, titleID string, number float64, excludeID string) (bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, existing := range repo.chapters {
		if existing.TitleID == titleID && existing.Number == number && existing.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *fakeChapterRepo) Update(_ context.Context, c *chapter.Chapter) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.failUpdate {
		return errors.New("connection reset")
	}
	if _, ok := repo.chapters[c.ID]; !ok {
		return apperr.NotFound("Chapter")
	}
	copied := *c
	copied.Pages = append([]chapter.Page(nil), c.Pages...)
	repo.chapters[c.ID] = &copied
	return nil
}

func (repo *fakeChapterRepo) Delete(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if _, ok := repo.chapters[id]; !ok {
		return apperr.NotFound("Chapter")
	}
	delete(repo.chapters, id)
	return nil
}

func (repo *fakeChapterRepo) count() int {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return len(repo.chapters)
}

// fakeTitles implements [chapter.TitleDirectory] and records applied deltas.
type fakeTitles struct {
	mu     sync.Mutex
	titles map[string]*title.Title
	deltas []int
}

func newFakeTitles() *fakeTitles {
	return &fakeTitles{titles: make(map[string]*title.Title)}
}

func (directory *fakeTitles) add(id, ownerID string) {
	directory.titles[id] = &title.Title{ID: id, OwnerID: ownerID, Name: "Test Work"}
}

func (directory *fakeTitles) GetTitle(_ context.Context, id string) (*title.Title, error) {
	directory.mu.Lock()
	defer directory.mu.Unlock()
	found, ok := directory.titles[id]
	if !ok {
		return nil, apperr.NotFound("Title")
	}
	return found, nil
}

func (directory *fakeTitles) ApplyChapterDelta(_ context.Context, id string, delta int) error {
	directory.mu.Lock()
	defer directory.mu.Unlock()
	if _, ok := directory.titles[id]; !ok {
		return apperr.NotFound("Title")
	}
	directory.deltas = append(directory.deltas, delta)
	return nil
}

// assemblerFixture bundles the service with every fake collaborator.
type assemblerFixture struct {
	service *chapter.Service
	store   *fakeContentStore
	repo    *fakeChapterRepo
	titles  *fakeTitles
	cleaner *ingest.Cleaner
}

func newAssembler(store *fakeContentStore) *assemblerFixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Tight retry delays keep failure-path tests fast
	cfg := ingest.Config{
		BatchSize:      15,
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
	}

	uploader := ingest.NewUploader(store, cfg, logger)
	scheduler := ingest.NewScheduler(uploader, cfg, logger)
	cleaner := ingest.NewCleaner(store, logger)

	repo := newFakeChapterRepo()
	titles := newFakeTitles()

	return &assemblerFixture{
		service: chapter.NewService(repo, titles, scheduler, uploader, cleaner, cfg, logger),
		store:   store,
		repo:    repo,
		titles:  titles,
		cleaner: cleaner,
	}
}

// pageFile builds an uploaded file whose bytes identify it.
func pageFile(name string) ingest.UploadedFile {
	return ingest.UploadedFile{Name: name, Data: []byte("content of " + name)}
}

func (fixture *assemblerFixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, fixture.cleaner.Drain(ctx))
}

/*
TestCreateChapter_ContiguousPagesUnderRandomLatency verifies that N files
always produce pages numbered exactly 1..N mapped to the right files, no
matter in which order the concurrent uploads complete.
*/
func TestCreateChapter_ContiguousPagesUnderRandomLatency(t *testing.T) {
	store := newFakeContentStore()
	store.maxJitter = 5 * time.Millisecond
	fixture := newAssembler(store)
	fixture.titles.add("title-1", "owner-1")

	// 40 files span three upload batches; shuffle the submission order
	const pageCount = 40
	files := make([]ingest.UploadedFile, 0, pageCount)
	for _, index := range rand.Perm(pageCount) {
		files = append(files, pageFile(fmt.Sprintf("scan_page_%02d.jpg", index+1)))
	}

	created, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)}, files, nil)
	require.NoError(t, err)
	require.Len(t, created.Pages, pageCount)

	for position, page := range created.Pages {
		assert.Equal(t, position+1, page.PageNumber)

		// The page's stored bytes must belong to the file whose filename
		// carries the same number
		expected := fmt.Sprintf("content of scan_page_%02d.jpg", position+1)
		assert.Equal(t, []byte(expected), fixture.store.dataAt(page.Image))
	}
}

/*
TestCreateChapter_FilenameOrdering verifies that shuffled submission order
is corrected by the filename-embedded page markers.
*/
func TestCreateChapter_FilenameOrdering(t *testing.T) {
	fixture := newAssembler(newFakeContentStore())
	fixture.titles.add("title-1", "owner-1")

	files := []ingest.UploadedFile{
		pageFile("work_page_03.png"),
		pageFile("work_page_01.png"),
		pageFile("work_page_02.png"),
	}

	created, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)}, files, nil)
	require.NoError(t, err)
	require.Len(t, created.Pages, 3)

	for i := 1; i <= 3; i++ {
		expected := fmt.Sprintf("content of work_page_%02d.png", i)
		assert.Equal(t, []byte(expected), fixture.store.dataAt(created.Pages[i-1].Image))
	}
}

/*
TestCreateChapter_DuplicateNumberConflict verifies that a duplicate chapter
number fails with CONFLICT before any object is uploaded.
*/
func TestCreateChapter_DuplicateNumberConflict(t *testing.T) {
	fixture := newAssembler(newFakeContentStore())
	fixture.titles.add("title-1", "owner-1")

	_, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg")}, nil)
	require.NoError(t, err)

	uploadsAfterFirst := fixture.store.putCount()

	_, err = fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One Again", Number: pointer.To(1.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg")}, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "CONFLICT"))

	// No upload may have been attempted for the rejected chapter
	assert.Equal(t, uploadsAfterFirst, fixture.store.putCount())
	assert.Equal(t, 1, fixture.repo.count())
}

/*
TestCreateChapter_ThumbnailFailureFallsBack verifies that a thumbnail whose
upload exhausts every retry still allows a successful creation with the
first page's locator as thumbnail.
*/
func TestCreateChapter_ThumbnailFailureFallsBack(t *testing.T) {
	store := newFakeContentStore()
	// The thumbnail is uploaded first; failing the first three puts burns
	// exactly its retry budget
	store.failFirst = 3
	fixture := newAssembler(store)
	fixture.titles.add("title-1", "owner-1")

	thumbnail := pageFile("cover.jpg")
	created, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg"), pageFile("page_02.jpg")}, &thumbnail)
	require.NoError(t, err)

	require.Len(t, created.Pages, 2)
	assert.Equal(t, created.Pages[0].Image, created.Thumbnail)
}

/*
TestCreateChapter_PageUploadFailureLeavesNothing verifies that a required
page upload failing every attempt persists no chapter, applies no aggregate
delta and surfaces UPLOAD_FAILED.
*/
func TestCreateChapter_PageUploadFailureLeavesNothing(t *testing.T) {
	store := newFakeContentStore()
	store.failAll = true
	fixture := newAssembler(store)
	fixture.titles.add("title-1", "owner-1")

	_, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg")}, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "UPLOAD_FAILED"))

	assert.Zero(t, fixture.repo.count())
	assert.Empty(t, fixture.titles.deltas)
}

/*
TestCreateChapter_IncrementsAggregate verifies the create path applies a +1
chapter delta to the owning title.
*/
func TestCreateChapter_IncrementsAggregate(t *testing.T) {
	fixture := newAssembler(newFakeContentStore())
	fixture.titles.add("title-1", "owner-1")

	_, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg")}, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, fixture.titles.deltas)
}

/*
TestUpdateChapter_RemovePagesRenumbers verifies that removing page 2 from a
three-page chapter yields pages [1,2] preserving the original relative
order, and that the removed object is eventually deleted from the store.
*/
func TestUpdateChapter_RemovePagesRenumbers(t *testing.T) {
	fixture := newAssembler(newFakeContentStore())
	fixture.titles.add("title-1", "owner-1")

	created, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg"), pageFile("page_02.jpg"), pageFile("page_03.jpg")}, nil)
	require.NoError(t, err)

	originalFirst := created.Pages[0].Image
	originalSecond := created.Pages[1].Image
	originalThird := created.Pages[2].Image

	updated, err := fixture.service.UpdateChapter(context.Background(), created.ID, "owner-1",
		chapter.UpdateInput{RemovePages: []int{2}}, nil, nil)
	require.NoError(t, err)

	require.Len(t, updated.Pages, 2)
	assert.Equal(t, chapter.Page{PageNumber: 1, Image: originalFirst}, updated.Pages[0])
	assert.Equal(t, chapter.Page{PageNumber: 2, Image: originalThird}, updated.Pages[1])

	// The removed page's object is cleaned up in the background
	fixture.drain(t)
	assert.False(t, fixture.store.has(originalSecond))
	assert.True(t, fixture.store.has(originalFirst))
	assert.True(t, fixture.store.has(originalThird))

	// Page edits never touch the title aggregate
	assert.Equal(t, []int{1}, fixture.titles.deltas)
}

/*
TestUpdateChapter_RenumberConflict verifies that renumbering onto a sibling's
chapter number fails with CONFLICT.
*/
func TestUpdateChapter_RenumberConflict(t *testing.T) {
	fixture := newAssembler(newFakeContentStore())
	fixture.titles.add("title-1", "owner-1")

	first, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg")}, nil)
	require.NoError(t, err)

	_, err = fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter Two", Number: pointer.To(2.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg")}, nil)
	require.NoError(t, err)

	_, err = fixture.service.UpdateChapter(context.Background(), first.ID, "owner-1",
		chapter.UpdateInput{Number: pointer.To(2.0)}, nil, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "CONFLICT"))
}

/*
TestUpdateChapter_OwnerMismatch verifies the defense-in-depth ownership check.
*/
func TestUpdateChapter_OwnerMismatch(t *testing.T) {
	fixture := newAssembler(newFakeContentStore())
	fixture.titles.add("title-1", "owner-1")

	created, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg")}, nil)
	require.NoError(t, err)

	_, err = fixture.service.UpdateChapter(context.Background(), created.ID, "someone-else",
		chapter.UpdateInput{Name: pointer.To("Hijacked")}, nil, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "UNAUTHORIZED"))

	err = fixture.service.DeleteChapter(context.Background(), created.ID, "someone-else")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "UNAUTHORIZED"))
	assert.Equal(t, 1, fixture.repo.count())
}

/*
TestUpdateChapter_OversizedFileAborts verifies the per-file size ceiling
rejects the whole edit before any upload starts.
*/
func TestUpdateChapter_OversizedFileAborts(t *testing.T) {
	fixture := newAssembler(newFakeContentStore())
	fixture.titles.add("title-1", "owner-1")

	created, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg")}, nil)
	require.NoError(t, err)

	uploadsBefore := fixture.store.putCount()

	oversized := ingest.UploadedFile{Name: "page_02.jpg", Data: make([]byte, 11<<20)}
	_, err = fixture.service.UpdateChapter(context.Background(), created.ID, "owner-1",
		chapter.UpdateInput{}, []ingest.UploadedFile{oversized}, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "VALIDATION_ERROR"))
	assert.Equal(t, uploadsBefore, fixture.store.putCount())
}

/*
TestUpdateChapter_AppendsAfterSurvivors verifies that new files are numbered
after the surviving pages.
*/
func TestUpdateChapter_AppendsAfterSurvivors(t *testing.T) {
	fixture := newAssembler(newFakeContentStore())
	fixture.titles.add("title-1", "owner-1")

	created, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg"), pageFile("page_02.jpg")}, nil)
	require.NoError(t, err)

	updated, err := fixture.service.UpdateChapter(context.Background(), created.ID, "owner-1",
		chapter.UpdateInput{RemovePages: []int{1}},
		[]ingest.UploadedFile{pageFile("extra_page_01.jpg"), pageFile("extra_page_02.jpg")}, nil)
	require.NoError(t, err)

	require.Len(t, updated.Pages, 3)
	for position, page := range updated.Pages {
		assert.Equal(t, position+1, page.PageNumber)
	}

	// Survivor first, then the new files in their filename order
	assert.Equal(t, []byte("content of page_02.jpg"), fixture.store.dataAt(updated.Pages[0].Image))
	assert.Equal(t, []byte("content of extra_page_01.jpg"), fixture.store.dataAt(updated.Pages[1].Image))
	assert.Equal(t, []byte("content of extra_page_02.jpg"), fixture.store.dataAt(updated.Pages[2].Image))
}

/*
TestUpdateChapter_ReplacesThumbnail verifies that supplying a replacement
thumbnail stores the new object before the old one is touched, commits the
new locator on the record, and only then deletes the old object.
*/
func TestUpdateChapter_ReplacesThumbnail(t *testing.T) {
	fixture := newAssembler(newFakeContentStore())
	fixture.titles.add("title-1", "owner-1")

	cover := pageFile("cover.jpg")
	created, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg"), pageFile("page_02.jpg")}, &cover)
	require.NoError(t, err)

	oldThumbnail := created.Thumbnail
	require.Equal(t, []byte("content of cover.jpg"), fixture.store.dataAt(oldThumbnail))

	newCover := pageFile("new_cover.jpg")
	updated, err := fixture.service.UpdateChapter(context.Background(), created.ID, "owner-1",
		chapter.UpdateInput{}, nil, &newCover)
	require.NoError(t, err)

	assert.NotEqual(t, oldThumbnail, updated.Thumbnail)
	assert.Equal(t, []byte("content of new_cover.jpg"), fixture.store.dataAt(updated.Thumbnail))

	// The record references the new object; the old one is cleaned up in the
	// background while the pages stay put
	fixture.drain(t)
	assert.False(t, fixture.store.has(oldThumbnail))
	for _, page := range updated.Pages {
		assert.True(t, fixture.store.has(page.Image))
	}

	reloaded, err := fixture.service.GetChapter(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Thumbnail, reloaded.Thumbnail)
}

/*
TestUpdateChapter_ReplaceKeepsPageSharedThumbnail verifies that replacing a
thumbnail which was defaulted to the first page's image never deletes that
page's object.
*/
func TestUpdateChapter_ReplaceKeepsPageSharedThumbnail(t *testing.T) {
	fixture := newAssembler(newFakeContentStore())
	fixture.titles.add("title-1", "owner-1")

	// No distinct thumbnail: the first page's locator doubles as one
	created, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg"), pageFile("page_02.jpg")}, nil)
	require.NoError(t, err)
	require.Equal(t, created.Pages[0].Image, created.Thumbnail)

	newCover := pageFile("new_cover.jpg")
	updated, err := fixture.service.UpdateChapter(context.Background(), created.ID, "owner-1",
		chapter.UpdateInput{}, nil, &newCover)
	require.NoError(t, err)

	assert.Equal(t, []byte("content of new_cover.jpg"), fixture.store.dataAt(updated.Thumbnail))

	// The shared object is still page 1; cleanup must not have touched it
	fixture.drain(t)
	assert.True(t, fixture.store.has(created.Pages[0].Image))
	assert.Equal(t, created.Pages[0].Image, updated.Pages[0].Image)
}

/*
TestUpdateChapter_ThumbnailReplaceFailureAborts verifies that a replacement
thumbnail whose upload exhausts every retry aborts the edit with
UPLOAD_FAILED, leaving the old thumbnail object and reference intact.
*/
func TestUpdateChapter_ThumbnailReplaceFailureAborts(t *testing.T) {
	fixture := newAssembler(newFakeContentStore())
	fixture.titles.add("title-1", "owner-1")

	cover := pageFile("cover.jpg")
	created, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg")}, &cover)
	require.NoError(t, err)

	// The replacement is the edit's only upload; failing the next three puts
	// burns exactly its retry budget
	fixture.store.failNext(3)

	newCover := pageFile("new_cover.jpg")
	_, err = fixture.service.UpdateChapter(context.Background(), created.ID, "owner-1",
		chapter.UpdateInput{Name: pointer.To("Renamed")}, nil, &newCover)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "UPLOAD_FAILED"))

	// Nothing changed: old object still stored, record still references it,
	// and the rename did not land either
	fixture.drain(t)
	assert.True(t, fixture.store.has(created.Thumbnail))
	assert.False(t, fixture.store.hasData("content of new_cover.jpg"))

	reloaded, err := fixture.service.GetChapter(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Thumbnail, reloaded.Thumbnail)
	assert.Equal(t, "Chapter One", reloaded.Name)
}

/*
TestUpdateChapter_PersistFailureCleansNewObjects verifies that when the
record write fails, every object stored by the edit (replacement thumbnail
and appended pages) is handed to cleanup while the old objects survive.
*/
func TestUpdateChapter_PersistFailureCleansNewObjects(t *testing.T) {
	fixture := newAssembler(newFakeContentStore())
	fixture.titles.add("title-1", "owner-1")

	created, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg")}, nil)
	require.NoError(t, err)

	fixture.repo.failUpdate = true

	newCover := pageFile("new_cover.jpg")
	_, err = fixture.service.UpdateChapter(context.Background(), created.ID, "owner-1",
		chapter.UpdateInput{}, []ingest.UploadedFile{pageFile("page_02.jpg")}, &newCover)
	require.Error(t, err)

	// The edit's uploads are orphans and get cleaned up; the committed
	// record's objects are untouched
	fixture.drain(t)
	assert.False(t, fixture.store.hasData("content of new_cover.jpg"))
	assert.False(t, fixture.store.hasData("content of page_02.jpg"))
	assert.True(t, fixture.store.has(created.Pages[0].Image))
}

/*
TestDeleteChapter_CleansUpAndDecrements verifies the delete path schedules
object cleanup, removes the record and applies a -1 delta.
*/
func TestDeleteChapter_CleansUpAndDecrements(t *testing.T) {
	fixture := newAssembler(newFakeContentStore())
	fixture.titles.add("title-1", "owner-1")

	created, err := fixture.service.CreateChapter(context.Background(), "title-1",
		chapter.CreateInput{Name: "Chapter One", Number: pointer.To(1.0)},
		[]ingest.UploadedFile{pageFile("page_01.jpg"), pageFile("page_02.jpg")}, nil)
	require.NoError(t, err)

	require.NoError(t, fixture.service.DeleteChapter(context.Background(), created.ID, "owner-1"))

	assert.Zero(t, fixture.repo.count())
	assert.Equal(t, []int{1, -1}, fixture.titles.deltas)

	fixture.drain(t)
	for _, page := range created.Pages {
		assert.False(t, fixture.store.has(page.Image))
	}
}
