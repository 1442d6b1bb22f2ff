package etl

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/sales-etl/pkg/models"
)

type fakeStore struct {
	objects     map[string][]byte // "bucket/key"
	downloadErr error
	moveErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) put(bucket, key string, data []byte) {
	f.objects[bucket+"/"+key] = data
}

func (f *fakeStore) Download(_ context.Context, bucket, key string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.Errorf("object %s/%s not found", bucket, key)
	}
	return data, nil
}

func (f *fakeStore) Exists(_ context.Context, bucket, key string) (bool, error) {
	_, ok := f.objects[bucket+"/"+key]
	return ok, nil
}

func (f *fakeStore) List(_ context.Context, bucket string) ([]string, error) {
	var keys []string
	prefix := bucket + "/"
	for name := range f.objects {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			keys = append(keys, name[len(prefix):])
		}
	}
	return keys, nil
}

func (f *fakeStore) Move(_ context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	if f.moveErr != nil {
		return f.moveErr
	}
	src := srcBucket + "/" + srcKey
	dst := dstBucket + "/" + dstKey
	data, ok := f.objects[src]
	if !ok {
		if _, done := f.objects[dst]; done {
			return nil
		}
		return errors.Errorf("object %s not found", src)
	}
	f.objects[dst] = data
	delete(f.objects, src)
	return nil
}

type loadCall struct {
	orders      []models.Order
	sourceFile  string
	rowsSkipped int
}

type fakeLoader struct {
	loadErr  error
	warnErr  error
	calls    []loadCall
	warnings []int64
}

func (f *fakeLoader) Load(_ context.Context, orders []models.Order, externalRunID, sourceFile string, rowsSkipped int) (*models.PipelineRun, error) {
	f.calls = append(f.calls, loadCall{orders: orders, sourceFile: sourceFile, rowsSkipped: rowsSkipped})
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return &models.PipelineRun{
		RunID:         int64(len(f.calls)),
		ExternalRunID: externalRunID,
		FileProcessed: sourceFile,
		RowsInserted:  len(orders),
		RowsSkipped:   rowsSkipped,
		Status:        models.RunSucceeded,
	}, nil
}

func (f *fakeLoader) MarkArchiveWarning(_ context.Context, runID int64) error {
	f.warnings = append(f.warnings, runID)
	return f.warnErr
}

const pipelineCSV = `order_id,customer_id,product,category,region,quantity,unit_price,discount,order_date,status
A1,c1,Laptop Pro 15,electronics,europe,2,10.00,0.1,2024-06-01,completed
A1,c1,Laptop Pro 15,electronics,europe,-1,10.00,0.1,2024-06-01,completed
`

func newTestPipeline(store *fakeStore, loader *fakeLoader) *Pipeline {
	return NewPipeline(store, loader, CSVParser{}, "raw-data", "processed-data")
}

func TestPipelineRun_Success(t *testing.T) {
	store := newFakeStore()
	store.put("raw-data", "sales_1.csv", []byte(pipelineCSV))
	loader := &fakeLoader{}
	p := newTestPipeline(store, loader)

	require.NoError(t, p.Run(context.Background(), "manual-run-1", "sales_1.csv"))
	assert.Equal(t, StateArchived, p.State)

	require.Len(t, loader.calls, 1)
	call := loader.calls[0]
	require.Len(t, call.orders, 1)
	assert.Equal(t, "A1", call.orders[0].OrderID)
	assert.Equal(t, "18.00", call.orders[0].TotalRevenue.StringFixed(2))
	assert.Equal(t, 1, call.rowsSkipped)
	assert.Equal(t, "sales_1.csv", call.sourceFile)

	// file moved raw -> processed
	_, raw := store.objects["raw-data/sales_1.csv"]
	_, processed := store.objects["processed-data/sales_1.csv"]
	assert.False(t, raw)
	assert.True(t, processed)
	assert.Empty(t, loader.warnings)
}

func TestPipelineRun_PicksFirstPendingFile(t *testing.T) {
	store := newFakeStore()
	store.put("raw-data", "sales_1.csv", []byte(pipelineCSV))
	loader := &fakeLoader{}
	p := newTestPipeline(store, loader)

	require.NoError(t, p.Run(context.Background(), "manual-run-2", ""))
	require.Len(t, loader.calls, 1)
	assert.Equal(t, "sales_1.csv", loader.calls[0].sourceFile)
}

func TestPipelineRun_EmptyBucketFails(t *testing.T) {
	p := newTestPipeline(newFakeStore(), &fakeLoader{})
	err := p.Run(context.Background(), "manual-run-3", "")
	require.Error(t, err)
	assert.Equal(t, StateFailed, p.State)
}

func TestPipelineRun_SchemaErrorFailsRun(t *testing.T) {
	store := newFakeStore()
	store.put("raw-data", "bad.csv", []byte("order_id,customer_id\nA1,c1\n"))
	loader := &fakeLoader{}
	p := newTestPipeline(store, loader)

	err := p.Run(context.Background(), "manual-run-4", "bad.csv")
	require.Error(t, err)
	assert.Equal(t, StateFailed, p.State)
	assert.Empty(t, loader.calls)
	// file stays in raw storage for inspection
	_, raw := store.objects["raw-data/bad.csv"]
	assert.True(t, raw)
}

func TestPipelineRun_LoadFailureLeavesFileInRaw(t *testing.T) {
	store := newFakeStore()
	store.put("raw-data", "sales_1.csv", []byte(pipelineCSV))
	loader := &fakeLoader{loadErr: errors.New("connection reset")}
	p := newTestPipeline(store, loader)

	err := p.Run(context.Background(), "manual-run-5", "sales_1.csv")
	require.Error(t, err)
	assert.Equal(t, StateFailed, p.State)

	_, raw := store.objects["raw-data/sales_1.csv"]
	assert.True(t, raw)

	// FAILED is absorbing: no later stage may execute
	require.Error(t, p.Archive(context.Background(), "sales_1.csv", 1))
}

func TestPipeline_ArchiveRequiresLoaded(t *testing.T) {
	p := newTestPipeline(newFakeStore(), &fakeLoader{})
	err := p.Archive(context.Background(), "sales_1.csv", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal transition")
}

func TestPipeline_ArchiveFailureKeepsRunSucceeded(t *testing.T) {
	store := newFakeStore()
	store.put("raw-data", "sales_1.csv", []byte(pipelineCSV))
	loader := &fakeLoader{}
	p := newTestPipeline(store, loader)
	store.moveErr = errors.New("copy failed")

	require.NoError(t, p.Run(context.Background(), "manual-run-6", "sales_1.csv"))
	assert.Equal(t, StateArchived, p.State)
	assert.Equal(t, []int64{1}, loader.warnings)

	// data load stands, file stays in raw storage
	_, raw := store.objects["raw-data/sales_1.csv"]
	assert.True(t, raw)
}

func TestPipeline_ArchiveIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.put("processed-data", "sales_1.csv", []byte(pipelineCSV))
	loader := &fakeLoader{}
	p := newTestPipeline(store, loader)
	p.State = StateLoaded

	require.NoError(t, p.Archive(context.Background(), "sales_1.csv", 7))
	assert.Empty(t, loader.warnings)
}

func TestPipeline_ForwardOnlyTransitions(t *testing.T) {
	p := newTestPipeline(newFakeStore(), &fakeLoader{})
	p.State = StateValidated

	_, err := p.Download(context.Background(), "sales_1.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal transition")
}
