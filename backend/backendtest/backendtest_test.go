package backendtest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/vecadd/backend"
)

const vaddSource = "__kernel void vadd(...)"

type launch struct {
	p   *Platform
	ctx backend.Context
	q   backend.Queue
	k   backend.Kernel
	out backend.Buffer
}

func setup(t *testing.T, p *Platform, a, b []float32, n int32) *launch {
	t.Helper()
	ctx, err := p.CreateContext()
	require.NoError(t, err)
	devs, err := ctx.Devices()
	require.NoError(t, err)
	q, err := ctx.CreateQueue(devs[0])
	require.NoError(t, err)
	prog, err := ctx.CreateProgram(vaddSource)
	require.NoError(t, err)
	require.NoError(t, prog.Build(backend.BuildOptions{}))
	k, err := prog.CreateKernel("vadd")
	require.NoError(t, err)

	in1, err := ctx.CreateBuffer(backend.ReadOnly, len(a), a)
	require.NoError(t, err)
	in2, err := ctx.CreateBuffer(backend.ReadOnly, len(b), b)
	require.NoError(t, err)
	out, err := ctx.CreateBuffer(backend.WriteOnly, len(a), nil)
	require.NoError(t, err)

	require.NoError(t, k.SetArgBuffer(0, in1))
	require.NoError(t, k.SetArgBuffer(1, in2))
	require.NoError(t, k.SetArgBuffer(2, out))
	require.NoError(t, k.SetArgInt32(3, n))
	return &launch{p: p, ctx: ctx, q: q, k: k, out: out}
}

func TestKernelExecution(t *testing.T) {
	l := setup(t, NewPlatform("fake"), []float32{1, 2, 3}, []float32{4, 5, 6}, 3)

	ev, err := l.q.EnqueueKernel(l.k, backend.ComputeGeometry(3, 4))
	require.NoError(t, err)
	require.NoError(t, ev.Wait())

	got := make([]float32, 3)
	require.NoError(t, l.q.ReadBuffer(l.out, got))
	assert.Equal(t, []float32{5, 7, 9}, got)
	assert.Zero(t, l.p.PaddingAccesses())
	assert.Equal(t, []backend.Geometry{{Global: 4, Local: 4}}, l.p.Launches())
}

func TestPaddingAccessesCounted(t *testing.T) {
	// A count argument larger than the buffers lets padding work-items
	// through the guard.
	l := setup(t, NewPlatform("fake"), []float32{1, 2}, []float32{3, 4}, 4)

	_, err := l.q.EnqueueKernel(l.k, backend.ComputeGeometry(2, 4))
	require.NoError(t, err)
	assert.Equal(t, 2, l.p.PaddingAccesses())
}

func TestReleaseTracking(t *testing.T) {
	p := NewPlatform("fake")
	ctx, err := p.CreateContext()
	require.NoError(t, err)
	buf, err := ctx.CreateBuffer(backend.WriteOnly, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Live())

	require.NoError(t, buf.Release())
	err = buf.Release()
	assert.ErrorIs(t, err, backend.ErrReleased)
	assert.Equal(t, 1, p.DoubleReleases())

	require.NoError(t, ctx.Release())
	assert.Zero(t, p.Live())
	assert.Equal(t, []string{"context#0", "buffer#0"}, p.Created())
	assert.Equal(t, []string{"buffer#0", "context#0"}, p.Released())
}

func TestFailOn(t *testing.T) {
	p := NewPlatform("fake", FailOn(OpCreateBuffer, 2))
	ctx, err := p.CreateContext()
	require.NoError(t, err)

	_, err = ctx.CreateBuffer(backend.WriteOnly, 1, nil)
	require.NoError(t, err)
	_, err = ctx.CreateBuffer(backend.WriteOnly, 1, nil)
	assert.ErrorIs(t, err, ErrInjected)
	_, err = ctx.CreateBuffer(backend.WriteOnly, 1, nil)
	assert.NoError(t, err, "only the nth call fails")
	assert.Equal(t, 3, p.Calls(OpCreateBuffer))
}

func TestBuildFailure(t *testing.T) {
	p := NewPlatform("fake", FailOn(OpBuild, 1))
	ctx, err := p.CreateContext()
	require.NoError(t, err)
	prog, err := ctx.CreateProgram(vaddSource)
	require.NoError(t, err)

	err = prog.Build(backend.BuildOptions{FastMath: true})
	var be *backend.BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, BuildLog, be.Log)
	assert.Empty(t, p.Builds())

	_, err = prog.CreateKernel("vadd")
	assert.Error(t, err, "kernel from unbuilt program")
}

func TestNoDevices(t *testing.T) {
	_, err := NewPlatform("fake", WithDevices()).CreateContext()
	assert.Error(t, err)
}

func TestEnqueueRequiresArguments(t *testing.T) {
	p := NewPlatform("fake")
	ctx, err := p.CreateContext()
	require.NoError(t, err)
	devs, err := ctx.Devices()
	require.NoError(t, err)
	q, err := ctx.CreateQueue(devs[0])
	require.NoError(t, err)
	prog, err := ctx.CreateProgram(vaddSource)
	require.NoError(t, err)
	require.NoError(t, prog.Build(backend.BuildOptions{}))
	k, err := prog.CreateKernel("vadd")
	require.NoError(t, err)

	_, err = q.EnqueueKernel(k, backend.Geometry{Global: 4, Local: 4})
	assert.Error(t, err)
	assert.Empty(t, p.Launches())
}

func TestFactory(t *testing.T) {
	a, b := NewPlatform("a"), NewPlatform("b")
	platforms, err := Factory(a, b)()
	require.NoError(t, err)
	require.Len(t, platforms, 2)
	assert.Equal(t, "a", platforms[0].Name())
	assert.Equal(t, "b", platforms[1].Name())
}
