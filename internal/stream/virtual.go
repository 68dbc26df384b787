package stream

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/meshlod/internal/logger"
	"github.com/Faultbox/meshlod/internal/mesh"
	"github.com/Faultbox/meshlod/pkg/math"
)

// zeroDistance is below which a chunk counts as surrounding the camera.
const zeroDistance = 1e-4

type loadResult struct {
	id   ChunkID
	seq  uint64
	data ChunkData
	err  error
}

type pendingLoad struct {
	seq    uint64
	hint   int64
	cancel context.CancelFunc
}

// VirtualMesh owns the chunks of one large asset and keeps their resident
// memory within a budget. All methods must be called from one goroutine;
// loads run concurrently and are applied by ProcessStreaming.
type VirtualMesh struct {
	cfg    Config
	loader Loader

	chunks []*MeshChunk
	memory int64
	frame  uint64

	index      *chunkIndex
	indexDirty bool

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	results  chan loadResult
	pending  map[ChunkID]*pendingLoad
	inFlight int
	seq      uint64
	closed   bool

	loads, evictions, failures, discarded uint64
}

// NewVirtualMesh creates an empty virtual mesh. loader may be nil, in which
// case chunks only become resident through explicit loads and are never
// requested.
func NewVirtualMesh(cfg Config, loader Loader) *VirtualMesh {
	if cfg.MaxInFlight < 1 {
		cfg.MaxInFlight = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &VirtualMesh{
		cfg:     cfg,
		loader:  loader,
		ctx:     ctx,
		cancel:  cancel,
		results: make(chan loadResult, cfg.MaxInFlight),
		pending: make(map[ChunkID]*pendingLoad),
	}
}

// Config returns the streaming configuration.
func (v *VirtualMesh) Config() Config {
	return v.cfg
}

// SetMemoryBudget changes the budget; the next ProcessStreaming enforces it.
func (v *VirtualMesh) SetMemoryBudget(budget int64) {
	v.cfg.MemoryBudget = budget
}

// AddChunk appends an unloaded chunk with zero priority.
func (v *VirtualMesh) AddChunk(bounds math.AABB, lodLevel int) ChunkID {
	id := ChunkID(len(v.chunks))
	v.chunks = append(v.chunks, &MeshChunk{
		ID:       id,
		Bounds:   bounds,
		LODLevel: lodLevel,
		State:    StateUnloaded,
	})
	v.indexDirty = true
	return id
}

// Chunk returns the chunk with the given id.
func (v *VirtualMesh) Chunk(id ChunkID) (*MeshChunk, bool) {
	if int(id) >= len(v.chunks) {
		return nil, false
	}
	return v.chunks[id], true
}

// Chunks returns every chunk in id order.
func (v *VirtualMesh) Chunks() []*MeshChunk {
	return v.chunks
}

// ChunkCount returns the number of chunks.
func (v *VirtualMesh) ChunkCount() int {
	return len(v.chunks)
}

// Frame returns the number of UpdatePriorities calls.
func (v *VirtualMesh) Frame() uint64 {
	return v.frame
}

// MemoryUsage returns the resident byte count.
func (v *VirtualMesh) MemoryUsage() int64 {
	return v.memory
}

// InFlight returns the number of loads not yet drained.
func (v *VirtualMesh) InFlight() int {
	return v.inFlight
}

// UpdatePriorities advances the frame and rescores every chunk. Closer and
// more centrally viewed chunks score higher; cameraDir is expected to be
// normalized.
func (v *VirtualMesh) UpdatePriorities(cameraPos, cameraDir math.Vec3) {
	v.frame++
	for _, c := range v.chunks {
		c.Priority = chunkPriority(c.Bounds.Center(), cameraPos, cameraDir, v.cfg.MinViewDot)
	}
}

func chunkPriority(center, cameraPos, cameraDir math.Vec3, minViewDot float32) float32 {
	toChunk := center.Sub(cameraPos)
	distance := toChunk.Length()

	viewDot := float32(1)
	if distance > zeroDistance {
		viewDot = toChunk.Scale(1 / distance).Dot(cameraDir)
	}

	return 1 / (distance + 1) * math32.Max(viewDot, minViewDot)
}

// ProcessStreaming runs one streaming step: completed loads are applied,
// then the lowest-priority resident chunks are evicted until the budget holds
// (or nothing is left to evict), then the highest-priority unloaded chunks are
// requested while the budget and MaxInFlight allow.
func (v *VirtualMesh) ProcessStreaming() {
	v.drainResults()
	v.dropInterest()
	v.enforceBudget()
	v.requestLoads()
}

// dropInterest cancels loads whose chunk fell below DiscardPriority.
func (v *VirtualMesh) dropInterest() {
	for id, p := range v.pending {
		c := v.chunks[id]
		if c.State == StateLoading && c.Priority < v.cfg.DiscardPriority {
			p.cancel()
			c.State = StateUnloading
		}
	}
}

func (v *VirtualMesh) drainResults() {
	for {
		select {
		case r := <-v.results:
			v.inFlight--
			v.applyResult(r)
		default:
			return
		}
	}
}

func (v *VirtualMesh) applyResult(r loadResult) {
	p, ok := v.pending[r.id]
	if !ok || p.seq != r.seq {
		v.discarded++
		return
	}
	delete(v.pending, r.id)
	p.cancel()

	c := v.chunks[r.id]
	switch {
	case c.State != StateLoading:
		// Cancelled by eviction or UnloadChunk while the loader ran.
		c.State = StateUnloaded
		v.discarded++
		return
	case r.err != nil:
		c.State = StateUnloaded
		v.failures++
		logger.Warn("chunk load failed",
			zap.Uint32("chunk", uint32(r.id)),
			zap.Error(r.err))
		return
	case c.Priority < v.cfg.DiscardPriority:
		c.State = StateUnloaded
		v.discarded++
		logger.Debug("chunk load discarded",
			zap.Uint32("chunk", uint32(r.id)),
			zap.Float32("priority", c.Priority))
		return
	}

	if err := v.makeResident(c, r.data); err != nil {
		c.State = StateUnloaded
		v.failures++
		logger.Warn("chunk load rejected", zap.Uint32("chunk", uint32(r.id)), zap.Error(err))
	}
}

// makeResident installs data as the chunk's buffers.
func (v *VirtualMesh) makeResident(c *MeshChunk, data ChunkData) error {
	if err := mesh.ValidateIndices(len(data.Vertices), data.Indices); err != nil {
		return err
	}

	c.Vertices = data.Vertices
	c.Indices = data.Indices
	if c.Vertices == nil {
		c.Vertices = []math.Vec3{}
	}
	if c.Indices == nil {
		c.Indices = []uint32{}
	}
	c.State = StateLoaded
	c.LastAccessFrame = v.frame
	c.sizeHint = c.ByteSize()

	v.memory += c.sizeHint
	v.loads++

	logger.Debug("chunk loaded",
		zap.Uint32("chunk", uint32(c.ID)),
		zap.Int64("bytes", c.sizeHint),
		zap.Int64("memory", v.memory))
	v.checkInvariants()
	return nil
}

func (v *VirtualMesh) enforceBudget() {
	for v.memory > v.cfg.MemoryBudget {
		victim := v.lowestResident()
		if victim == nil {
			return
		}
		v.evict(victim)
		v.evictions++
		logger.Debug("chunk evicted",
			zap.Uint32("chunk", uint32(victim.ID)),
			zap.Float32("priority", victim.Priority),
			zap.Int64("memory", v.memory),
			zap.Int64("budget", v.cfg.MemoryBudget))
	}
}

// lowestResident picks the eviction victim: lowest priority, then least
// recently accessed, then lowest id.
func (v *VirtualMesh) lowestResident() *MeshChunk {
	var victim *MeshChunk
	for _, c := range v.chunks {
		if c.State != StateLoaded {
			continue
		}
		if victim == nil || c.Priority < victim.Priority ||
			(c.Priority == victim.Priority && c.LastAccessFrame < victim.LastAccessFrame) {
			victim = c
		}
	}
	return victim
}

func (v *VirtualMesh) evict(c *MeshChunk) {
	v.memory -= c.ByteSize()
	c.Vertices = nil
	c.Indices = nil
	c.State = StateUnloaded
	v.checkInvariants()
}

func (v *VirtualMesh) requestLoads() {
	if v.loader == nil || v.closed || v.memory > v.cfg.MemoryBudget {
		return
	}
	if v.inFlight >= v.cfg.MaxInFlight {
		return
	}

	var candidates []*MeshChunk
	for _, c := range v.chunks {
		if c.State == StateUnloaded && c.Priority >= v.cfg.LoadPriority {
			candidates = append(candidates, c)
		}
	}
	slices.SortFunc(candidates, func(a, b *MeshChunk) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	projected := v.memory
	for _, p := range v.pending {
		projected += p.hint
	}

	for _, c := range candidates {
		if v.inFlight >= v.cfg.MaxInFlight {
			return
		}
		// A chunk whose size is known must fit, possibly by displacing
		// residents of lower priority.
		if need := projected + c.sizeHint; need > v.cfg.MemoryBudget &&
			need-v.evictableBelow(c.Priority) > v.cfg.MemoryBudget {
			continue
		}
		projected += c.sizeHint
		v.request(c)
	}
}

func (v *VirtualMesh) evictableBelow(priority float32) int64 {
	var n int64
	for _, c := range v.chunks {
		if c.State == StateLoaded && c.Priority < priority {
			n += c.ByteSize()
		}
	}
	return n
}

func (v *VirtualMesh) request(c *MeshChunk) {
	v.seq++
	seq := v.seq

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if v.cfg.LoadTimeout > 0 {
		ctx, cancel = context.WithTimeout(v.ctx, v.cfg.LoadTimeout)
	} else {
		ctx, cancel = context.WithCancel(v.ctx)
	}

	v.pending[c.ID] = &pendingLoad{seq: seq, hint: c.sizeHint, cancel: cancel}
	c.State = StateLoading
	v.inFlight++

	id, lod := c.ID, c.LODLevel
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		data, err := v.loader.Load(ctx, id, lod)
		// inFlight never exceeds the buffer, so this cannot block.
		v.results <- loadResult{id: id, seq: seq, data: data, err: err}
	}()
}

// UnloadChunk frees a resident chunk or cancels a loading one. Unloading an
// unloaded chunk is a no-op.
func (v *VirtualMesh) UnloadChunk(id ChunkID) error {
	c, ok := v.Chunk(id)
	if !ok {
		return fmt.Errorf("unload chunk %d: %w", id, ErrUnknownChunk)
	}

	switch c.State {
	case StateLoaded:
		v.evict(c)
	case StateLoading:
		if p, ok := v.pending[id]; ok {
			p.cancel()
		}
		c.State = StateUnloading
	}
	return nil
}

// LoadChunkSync loads a chunk on the calling goroutine, ignoring the budget.
// The next ProcessStreaming evicts if needed.
func (v *VirtualMesh) LoadChunkSync(ctx context.Context, id ChunkID) error {
	c, ok := v.Chunk(id)
	if !ok {
		return fmt.Errorf("load chunk %d: %w", id, ErrUnknownChunk)
	}
	if v.closed {
		return ErrClosed
	}
	if v.loader == nil {
		return ErrNoLoader
	}

	switch c.State {
	case StateLoaded:
		return nil
	case StateLoading, StateUnloading:
		return fmt.Errorf("load chunk %d (%s): %w", id, c.State, ErrInvalidState)
	}

	if v.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.cfg.LoadTimeout)
		defer cancel()
	}

	data, err := v.loader.Load(ctx, id, c.LODLevel)
	if err != nil {
		v.failures++
		return fmt.Errorf("load chunk %d: %w", id, err)
	}
	if err := v.makeResident(c, data); err != nil {
		v.failures++
		return fmt.Errorf("load chunk %d: %w", id, err)
	}
	return nil
}

// ResidentChunks returns the loaded chunks in id order.
func (v *VirtualMesh) ResidentChunks() []*MeshChunk {
	var out []*MeshChunk
	for _, c := range v.chunks {
		if c.State == StateLoaded {
			out = append(out, c)
		}
	}
	return out
}

// VisitResident calls fn for every loaded chunk and marks it accessed in the
// current frame. Iteration stops when fn returns false.
func (v *VirtualMesh) VisitResident(fn func(c *MeshChunk) bool) {
	for _, c := range v.chunks {
		if c.State != StateLoaded {
			continue
		}
		c.LastAccessFrame = v.frame
		if !fn(c) {
			return
		}
	}
}

// NearestChunks returns up to k chunks whose centers are closest to p.
func (v *VirtualMesh) NearestChunks(p math.Vec3, k int) []ChunkID {
	if v.index == nil || v.indexDirty {
		v.index = newChunkIndex(v.chunks)
		v.indexDirty = false
	}
	return v.index.nearest(p, k)
}

// Validate checks that memory usage equals the resident buffer sizes and that
// buffers exist exactly on loaded chunks.
func (v *VirtualMesh) Validate() error {
	var sum int64
	for _, c := range v.chunks {
		resident := c.State == StateLoaded
		if (c.Vertices != nil) != resident || (c.Indices != nil) != resident {
			return fmt.Errorf("chunk %d (%s) buffers: %w", c.ID, c.State, ErrInvalidState)
		}
		if resident {
			sum += c.ByteSize()
		}
	}
	if sum != v.memory {
		return fmt.Errorf("%w: counted %d, resident %d", ErrMemoryMismatch, v.memory, sum)
	}
	return nil
}

func (v *VirtualMesh) checkInvariants() {
	if !v.cfg.CheckInvariants {
		return
	}
	if err := v.Validate(); err != nil {
		logger.Error("virtual mesh invariant violated", zap.Error(err))
	}
}

// Stats returns the current counters.
func (v *VirtualMesh) Stats() Stats {
	s := Stats{
		Chunks:       len(v.chunks),
		MemoryUsage:  v.memory,
		MemoryBudget: v.cfg.MemoryBudget,
		Loads:        v.loads,
		Evictions:    v.evictions,
		Failures:     v.failures,
		Discarded:    v.discarded,
	}
	for _, c := range v.chunks {
		switch c.State {
		case StateLoaded:
			s.Resident++
		case StateLoading:
			s.Loading++
		}
	}
	return s
}

// Close cancels outstanding loads, waits for the loaders to return and
// releases every resident chunk. It is safe to call more than once.
func (v *VirtualMesh) Close() {
	if v.closed {
		return
	}
	v.closed = true
	v.cancel()
	v.wg.Wait()

	// Every loader has sent by now.
	for v.inFlight > 0 {
		<-v.results
		v.inFlight--
	}
	clear(v.pending)

	for _, c := range v.chunks {
		if c.State == StateLoaded {
			v.evict(c)
		} else {
			c.State = StateUnloaded
		}
	}
}
