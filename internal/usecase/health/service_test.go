package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingerStub struct {
	err error
}

func (p *pingerStub) Ping(_ context.Context) error { return p.err }

type verifierStub struct {
	err    error
	called bool
}

func (v *verifierStub) Verify(_ context.Context) error {
	v.called = true
	return v.err
}

func TestCheck_AllHealthy(t *testing.T) {
	r := New(&pingerStub{}, &verifierStub{}).Check(context.Background())

	assert.Equal(t, Healthy, r.Status)
	assert.Equal(t, CheckOK, r.Checks["database"])
	assert.Equal(t, CheckOK, r.Checks["indexes"])
}

func TestCheck_DBError(t *testing.T) {
	schema := &verifierStub{}
	r := New(&pingerStub{err: errors.New("conn refused")}, schema).Check(context.Background())

	assert.Equal(t, Unhealthy, r.Status)
	assert.Equal(t, CheckError, r.Checks["database"])
	assert.False(t, schema.called, "indexes must not be checked without the database")
	assert.NotContains(t, r.Checks, "indexes")
}

func TestCheck_IndexMissing(t *testing.T) {
	r := New(&pingerStub{}, &verifierStub{err: errors.New("index missing")}).Check(context.Background())

	assert.Equal(t, Degraded, r.Status)
	assert.Equal(t, CheckOK, r.Checks["database"])
	assert.Equal(t, CheckError, r.Checks["indexes"])
}

func TestCheck_NoSchema(t *testing.T) {
	r := New(&pingerStub{}, nil).Check(context.Background())

	assert.Equal(t, Healthy, r.Status)
	assert.NotContains(t, r.Checks, "indexes")
}
