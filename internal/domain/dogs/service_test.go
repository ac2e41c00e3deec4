package dogs_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pura-pata-api/internal/adapters/storage/memory"
	"pura-pata-api/internal/domain/apperr"
	"pura-pata-api/internal/domain/dogs"
	"pura-pata-api/internal/domain/geo"
	"pura-pata-api/internal/domain/history"
	"pura-pata-api/internal/domain/lifecycle"
	"pura-pata-api/internal/domain/users"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeFiles struct {
	mu      sync.Mutex
	deleted []string
	fail    map[string]bool
}

func (f *fakeFiles) Delete(_ context.Context, u string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[u] {
		return errors.New("storage down")
	}
	f.deleted = append(f.deleted, u)
	return nil
}

type fixture struct {
	svc   *dogs.Service
	hist  *history.Service
	users *users.Service
	files *fakeFiles
}

func setup(t *testing.T) fixture {
	t.Helper()
	histRepo := memory.NewHistoryRepo()
	histSvc := history.NewService(histRepo)
	userSvc := users.NewService(memory.NewUserRepo(), nil)
	files := &fakeFiles{fail: map[string]bool{}}

	svc := dogs.NewService(dogs.Deps{
		Repo:       memory.NewDogRepo(histRepo),
		History:    histSvc,
		Tx:         memory.NewTxManager(),
		Publishers: userSvc,
		Files:      files,
	})

	for _, id := range []string{"owner", "other"} {
		_, err := userSvc.Register(context.Background(), id, users.ProfileInput{
			Email: id + "@example.com",
			Name:  id,
			Phone: strPtr("8888-" + id),
		})
		require.NoError(t, err)
	}
	return fixture{svc: svc, hist: histSvc, users: userSvc, files: files}
}

func strPtr(s string) *string { return &s }

func validInput(photos ...string) dogs.CreateInput {
	if len(photos) == 0 {
		photos = []string{"https://cdn.test/dogs/photos/1.jpg"}
	}
	return dogs.CreateInput{
		Name:         "Canela",
		AgeYears:     2,
		Breed:        "mestizo",
		Size:         dogs.SizeMedium,
		Gender:       dogs.GenderFemale,
		Color:        "café",
		Latitude:     9.9,
		Longitude:    -84.1,
		Province:     strPtr("San José"),
		ContactPhone: "8888-0000",
		Photos:       photos,
	}
}

func TestCreate_PhotoCountBounds(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	photos := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = "https://cdn.test/p.jpg"
		}
		return out
	}

	for _, n := range []int{0, 6} {
		in := validInput()
		in.Photos = photos(n)
		_, err := f.svc.Create(ctx, "owner", in)
		assert.Truef(t, errors.Is(err, apperr.ErrValidation), "n=%d", n)
	}
	for _, n := range []int{1, 5} {
		in := validInput()
		in.Photos = photos(n)
		_, err := f.svc.Create(ctx, "owner", in)
		assert.NoErrorf(t, err, "n=%d", n)
	}
}

func TestNewService_MaxPhotosIsCapped(t *testing.T) {
	histRepo := memory.NewHistoryRepo()
	userSvc := users.NewService(memory.NewUserRepo(), nil)
	svc := dogs.NewService(dogs.Deps{
		Repo:       memory.NewDogRepo(histRepo),
		History:    history.NewService(histRepo),
		Tx:         memory.NewTxManager(),
		Publishers: userSvc,
		MaxPhotos:  10,
	})
	assert.Equal(t, dogs.MaxPhotosLimit, svc.MaxPhotos())

	ctx := context.Background()
	_, err := userSvc.Register(ctx, "owner", users.ProfileInput{Email: "owner@example.com", Name: "owner"})
	require.NoError(t, err)

	photos := make([]string, 6)
	for i := range photos {
		photos[i] = fmt.Sprintf("https://cdn.test/p%d.jpg", i)
	}
	_, err = svc.Create(ctx, "owner", validInput(photos...))
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.Create(ctx, "owner", validInput(photos[:5]...))
	assert.NoError(t, err)
}

// failingHistory acepta lecturas pero rechaza toda escritura.
type failingHistory struct{}

func (failingHistory) Append(context.Context, history.Entry) error {
	return errors.New("history unavailable")
}

func (failingHistory) ListByDog(context.Context, string) ([]history.Entry, error) {
	return nil, nil
}

func TestCreate_HistoryFailureLeavesNoListing(t *testing.T) {
	ctx := context.Background()
	dogRepo := memory.NewDogRepo(memory.NewHistoryRepo())
	userSvc := users.NewService(memory.NewUserRepo(), nil)
	_, err := userSvc.Register(ctx, "owner", users.ProfileInput{Email: "owner@example.com", Name: "owner"})
	require.NoError(t, err)

	svc := dogs.NewService(dogs.Deps{
		Repo:       dogRepo,
		History:    history.NewService(failingHistory{}),
		Tx:         memory.NewTxManager(),
		Publishers: userSvc,
	})

	_, err = svc.Create(ctx, "owner", validInput())
	require.Error(t, err)

	all, err := dogRepo.List(ctx, dogs.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	available := lifecycle.StatusAvailable
	items, err := svc.List(ctx, dogs.ListFilter{Status: &available})
	require.NoError(t, err)
	assert.Empty(t, items)

	mine, err := svc.ListByPublisher(ctx, "owner", nil)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestCreate_WritesInitialHistory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d, err := f.svc.Create(ctx, "owner", validInput())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusAvailable, d.Status)
	assert.Nil(t, d.AdoptedAt)

	items, err := f.hist.ListByDog(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].OldStatus)
	assert.Equal(t, lifecycle.StatusAvailable, items[0].NewStatus)
}

func TestCreate_UnknownPublisher(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Create(context.Background(), "ghost", validInput())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestChangeStatus_Lifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d, err := f.svc.Create(ctx, "owner", validInput())
	require.NoError(t, err)

	d, err = f.svc.ChangeStatus(ctx, d.ID, "owner", lifecycle.StatusReserved)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusReserved, d.Status)
	assert.Nil(t, d.AdoptedAt)

	d, err = f.svc.ChangeStatus(ctx, d.ID, "owner", lifecycle.StatusAdopted)
	require.NoError(t, err)
	require.NotNil(t, d.AdoptedAt)
	adoptedAt := *d.AdoptedAt

	for _, to := range []lifecycle.Status{lifecycle.StatusAvailable, lifecycle.StatusReserved, lifecycle.StatusAdopted} {
		_, err = f.svc.ChangeStatus(ctx, d.ID, "owner", to)
		assert.Truef(t, errors.Is(err, apperr.ErrConflict), "to=%s", to)
	}

	stored, err := f.svc.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusAdopted, stored.Status)
	require.NotNil(t, stored.AdoptedAt)
	assert.True(t, adoptedAt.Equal(*stored.AdoptedAt))

	items, err := f.hist.ListByDog(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, lifecycle.StatusAdopted, items[0].NewStatus)
	assert.Equal(t, lifecycle.StatusReserved, *items[0].OldStatus)
	assert.Equal(t, lifecycle.StatusReserved, items[1].NewStatus)
	assert.Equal(t, lifecycle.StatusAvailable, *items[1].OldStatus)
}

func TestChangeStatus_SameStatusIsNoop(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d, err := f.svc.Create(ctx, "owner", validInput())
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, d.ID, "owner", lifecycle.StatusAvailable)
	require.NoError(t, err)

	items, err := f.hist.ListByDog(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestMutations_NonOwnerIsForbiddenRegardlessOfPayload(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d, err := f.svc.Create(ctx, "owner", validInput())
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, d.ID, "other", dogs.UpdateInput{Photos: []string{}})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = f.svc.ChangeStatus(ctx, d.ID, "other", lifecycle.Status("bogus"))
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	err = f.svc.Delete(ctx, d.ID, "other")
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = f.svc.GetByID(ctx, d.ID)
	require.NoError(t, err)
}

func TestUpdate_PartialAndClearing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	in := validInput()
	in.Certificate = strPtr("https://cdn.test/dogs/certificates/c.pdf")
	d, err := f.svc.Create(ctx, "owner", in)
	require.NoError(t, err)

	name := "Canela II"
	updated, err := f.svc.Update(ctx, d.ID, "owner", dogs.UpdateInput{
		Name:        &name,
		Certificate: dogs.Clear[string](),
		Province:    dogs.Set("Cartago"),
		Photos:      []string{"https://cdn.test/a.jpg", "https://cdn.test/b.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Canela II", updated.Name)
	assert.Nil(t, updated.Certificate)
	require.NotNil(t, updated.Province)
	assert.Equal(t, "Cartago", *updated.Province)
	assert.Len(t, updated.Photos, 2)
	// no enviados: sin cambios
	assert.Equal(t, "mestizo", updated.Breed)
	assert.Equal(t, lifecycle.StatusAvailable, updated.Status)

	_, err = f.svc.Update(ctx, d.ID, "owner", dogs.UpdateInput{Photos: []string{}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestList_RadiusAndPublisher(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "owner", validInput())
	require.NoError(t, err)

	near := &geo.Radius{Center: geo.Point{Lat: 9.91, Lon: -84.11}, KM: 5}
	items, err := f.svc.List(ctx, dogs.ListFilter{Radius: near})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Publisher)
	assert.Equal(t, "owner@example.com", items[0].Publisher.Email)
	assert.Nil(t, items[0].Publisher.Phone, "list omits phone")

	far := &geo.Radius{Center: geo.Point{Lat: 0, Lon: 0}, KM: 5}
	items, err = f.svc.List(ctx, dogs.ListFilter{Radius: far})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestList_DefaultsToAvailableAndValidatesLimit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d, err := f.svc.Create(ctx, "owner", validInput())
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, d.ID, "owner", lifecycle.StatusReserved)
	require.NoError(t, err)

	items, err := f.svc.List(ctx, dogs.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)

	reserved := lifecycle.StatusReserved
	items, err = f.svc.List(ctx, dogs.ListFilter{Status: &reserved})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = f.svc.List(ctx, dogs.ListFilter{Limit: 101})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.svc.List(ctx, dogs.ListFilter{Radius: &geo.Radius{KM: -1}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestList_RejectsInvalidRadius(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cases := map[string]geo.Radius{
		"nan radius":    {Center: geo.Point{Lat: 9.9, Lon: -84.1}, KM: math.NaN()},
		"inf radius":    {Center: geo.Point{Lat: 9.9, Lon: -84.1}, KM: math.Inf(1)},
		"nan latitude":  {Center: geo.Point{Lat: math.NaN(), Lon: -84.1}, KM: 5},
		"latitude 900":  {Center: geo.Point{Lat: 900, Lon: -84.1}, KM: 5},
		"longitude 181": {Center: geo.Point{Lat: 9.9, Lon: 181}, KM: 5},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.List(ctx, dogs.ListFilter{Radius: &r})
			assert.True(t, errors.Is(err, apperr.ErrValidation))
		})
	}
}

func TestGet_DetailIncludesPhone(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d, err := f.svc.Create(ctx, "owner", validInput())
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Publisher)
	require.NotNil(t, got.Publisher.Phone)
	assert.Equal(t, "8888-owner", *got.Publisher.Phone)
}

func TestDelete_RemovesFilesBestEffort(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	in := validInput("https://cdn.test/a.jpg", "https://cdn.test/b.jpg")
	in.Certificate = strPtr("https://cdn.test/c.pdf")
	d, err := f.svc.Create(ctx, "owner", in)
	require.NoError(t, err)

	f.files.fail["https://cdn.test/b.jpg"] = true

	require.NoError(t, f.svc.Delete(ctx, d.ID, "owner"))
	assert.ElementsMatch(t, []string{"https://cdn.test/a.jpg", "https://cdn.test/c.pdf"}, f.files.deleted)

	_, err = f.svc.GetByID(ctx, d.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	items, err := f.hist.ListByDog(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDelete_KeepsFilesSharedWithOtherListings(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	shared := "https://cdn.test/shared.jpg"
	cert := "https://cdn.test/shared.pdf"

	in := validInput(shared, "https://cdn.test/only-a.jpg")
	in.Certificate = strPtr(cert)
	a, err := f.svc.Create(ctx, "owner", in)
	require.NoError(t, err)

	in = validInput(shared)
	in.Certificate = strPtr(cert)
	b, err := f.svc.Create(ctx, "owner", in)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, a.ID, "owner"))
	assert.Equal(t, []string{"https://cdn.test/only-a.jpg"}, f.files.deleted)

	require.NoError(t, f.svc.Delete(ctx, b.ID, "owner"))
	assert.ElementsMatch(t, []string{"https://cdn.test/only-a.jpg", shared, cert}, f.files.deleted)
}

// sparseDirectory pierde a algunos usuarios (p. ej. borrados entre consultas).
type sparseDirectory struct {
	inner   dogs.PublisherDirectory
	missing map[string]bool
}

func (d sparseDirectory) Publishers(ctx context.Context, ids []string) (map[string]dogs.Publisher, error) {
	out, err := d.inner.Publishers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id := range d.missing {
		delete(out, id)
	}
	return out, nil
}

func TestListAndGet_MissingPublisherIsNil(t *testing.T) {
	ctx := context.Background()
	histRepo := memory.NewHistoryRepo()
	userSvc := users.NewService(memory.NewUserRepo(), nil)
	for _, id := range []string{"owner", "other"} {
		_, err := userSvc.Register(ctx, id, users.ProfileInput{Email: id + "@example.com", Name: id})
		require.NoError(t, err)
	}

	dir := sparseDirectory{inner: userSvc, missing: map[string]bool{}}
	svc := dogs.NewService(dogs.Deps{
		Repo:       memory.NewDogRepo(histRepo),
		History:    history.NewService(histRepo),
		Tx:         memory.NewTxManager(),
		Publishers: dir,
	})

	gone, err := svc.Create(ctx, "owner", validInput())
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	kept, err := svc.Create(ctx, "other", validInput())
	require.NoError(t, err)

	dir.missing["owner"] = true

	items, err := svc.List(ctx, dogs.ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, kept.ID, items[0].ID)
	require.NotNil(t, items[0].Publisher)
	assert.Equal(t, gone.ID, items[1].ID)
	assert.Nil(t, items[1].Publisher)

	got, err := svc.Get(ctx, gone.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Publisher)
}

func TestListAvailableByPublisher(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, "owner", validInput())
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	b, err := f.svc.Create(ctx, "owner", validInput())
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, b.ID, "owner", lifecycle.StatusReserved)
	require.NoError(t, err)

	public, err := f.svc.ListAvailableByPublisher(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, a.ID, public[0].ID)

	mine, err := f.svc.ListByPublisher(ctx, "owner", nil)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, b.ID, mine[0].ID)

	_, err = f.svc.ListAvailableByPublisher(ctx, "ghost")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
