package memrt

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	gcbridge "github.com/wippyai/gc-bridge"
)

// DefaultGCInterval is how many host-initiated allocations pass between
// automatic collection cycles.
const DefaultGCInterval = 64

// DefaultVersion is the version the runtime reports unless overridden.
const DefaultVersion = "1.10.0"

type builtinFunc func(r *Runtime, args []gcbridge.Ptr) (res, exc gcbridge.Ptr)

// typeInfo is the runtime-side layout record behind a type descriptor object.
type typeInfo struct {
	desc   gcbridge.TypeDesc
	fields []string
}

// object is one heap cell. Exactly one of bits/fields/fn/info is meaningful,
// depending on the kind recorded by the object's type.
type object struct {
	typ    gcbridge.Ptr
	kind   gcbridge.TypeKind
	bits   []byte
	fields []gcbridge.Ptr
	fn     builtinFunc
	info   *typeInfo
	mark   bool
}

// frame is one registered GC frame. Fixed frames reject out-of-range slots;
// dynamic frames grow as slots are written.
type frame struct {
	rt    *Runtime
	slots []gcbridge.Ptr
	fixed bool
}

func (f *frame) Set(slot int, p gcbridge.Ptr) error {
	f.rt.mu.Lock()
	defer f.rt.mu.Unlock()
	if slot < 0 {
		return fmt.Errorf("negative root slot %d", slot)
	}
	if slot >= len(f.slots) {
		if f.fixed {
			return fmt.Errorf("slot %d out of range for fixed frame of %d", slot, len(f.slots))
		}
		grown := make([]gcbridge.Ptr, slot+1)
		copy(grown, f.slots)
		f.slots = grown
	}
	f.slots[slot] = p
	return nil
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithVersion overrides the reported runtime version.
func WithVersion(v string) Option {
	return func(r *Runtime) { r.version = v }
}

// WithGCInterval sets the allocation count between automatic collections.
// Zero or negative disables automatic collection.
func WithGCInterval(n int) Option {
	return func(r *Runtime) { r.gcInterval = n }
}

// WithLogger sets the runtime's logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) { r.log = l }
}

// Runtime is the in-process managed runtime. The zero value is not usable;
// construct with New and start with Init.
type Runtime struct {
	mu sync.Mutex

	version    string
	gcInterval int
	log        *zap.Logger

	initialized bool
	closed      bool

	next           gcbridge.Ptr
	heap           map[gcbridge.Ptr]*object
	types          map[gcbridge.TypeKind]gcbridge.Ptr
	typeObjs       []gcbridge.Ptr
	exceptionTypes map[string]gcbridge.Ptr
	mutCellType    gcbridge.Ptr
	globals        map[string]gcbridge.Ptr
	frames         []*frame
	pins           map[gcbridge.Ptr]int

	allocs      int
	collections int
}

// New creates an uninitialized runtime.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		version:    DefaultVersion,
		gcInterval: DefaultGCInterval,
		log:        zap.NewNop(),
		next:       0x1000,
		heap:       make(map[gcbridge.Ptr]*object),
		types:      make(map[gcbridge.TypeKind]gcbridge.Ptr),
		globals:    make(map[string]gcbridge.Ptr),
		pins:       make(map[gcbridge.Ptr]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init builds the type table, builtins and module globals. stackCapacity is
// accepted for interface compatibility; frames here are allocated per push.
func (r *Runtime) Init(stackCapacity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return fmt.Errorf("memrt already initialized")
	}
	if r.closed {
		return fmt.Errorf("memrt cannot restart after shutdown")
	}
	r.bootstrapTypes()
	r.bootstrapGlobals()
	r.initialized = true
	r.log.Debug("memrt initialized",
		zap.String("version", r.version),
		zap.Int("stack_capacity_hint", stackCapacity),
		zap.Int("types", len(r.types)))
	return nil
}

// Shutdown drops the heap. The runtime cannot be initialized again.
func (r *Runtime) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized || r.closed {
		return fmt.Errorf("memrt not running")
	}
	r.closed = true
	r.heap = nil
	r.frames = nil
	r.globals = nil
	r.log.Debug("memrt shut down")
	return nil
}

func (r *Runtime) Version() string {
	return r.version
}

// Alloc creates an object of the given bits type from raw payload bytes. The
// result is unrooted; a collection may reclaim it unless the caller roots it
// before allocating again.
func (r *Runtime) Alloc(typ gcbridge.Ptr, data []byte) (gcbridge.Ptr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.running(); err != nil {
		return 0, err
	}

	t, ok := r.heap[typ]
	if !ok || t.info == nil {
		return 0, fmt.Errorf("alloc with non-type pointer %#x", typ)
	}
	info := t.info
	switch info.desc.Kind {
	case gcbridge.KindFunction, gcbridge.KindStruct, gcbridge.KindException, gcbridge.KindDataType:
		return 0, fmt.Errorf("cannot allocate %s from raw bytes", info.desc.Name)
	}
	if info.desc.Size > 0 && len(data) != int(info.desc.Size) {
		return 0, fmt.Errorf("%s payload is %d bytes, got %d", info.desc.Name, info.desc.Size, len(data))
	}

	// Collect before allocating, never after: the fresh object is unrooted
	// and must survive until the caller can root it.
	r.maybeCollect()
	return r.newObject(typ, &object{bits: append([]byte(nil), data...)}), nil
}

func (r *Runtime) TypeOf(p gcbridge.Ptr) gcbridge.Ptr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.heap[p]; ok {
		return o.typ
	}
	return 0
}

func (r *Runtime) Describe(typ gcbridge.Ptr) (gcbridge.TypeDesc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.heap[typ]; ok && o.info != nil {
		return o.info.desc, true
	}
	return gcbridge.TypeDesc{}, false
}

func (r *Runtime) Bits(p gcbridge.Ptr) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.running(); err != nil {
		return nil, err
	}
	o, ok := r.heap[p]
	if !ok {
		return nil, fmt.Errorf("dead pointer %#x", p)
	}
	switch o.kind {
	case gcbridge.KindFunction, gcbridge.KindStruct, gcbridge.KindException, gcbridge.KindDataType:
		return nil, fmt.Errorf("%s value has no bits payload", o.kind)
	}
	return append([]byte(nil), o.bits...), nil
}

func (r *Runtime) NumFields(p gcbridge.Ptr) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.heap[p]; ok {
		return len(o.fields)
	}
	return 0
}

func (r *Runtime) Field(p gcbridge.Ptr, i int) (gcbridge.Ptr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.running(); err != nil {
		return 0, err
	}
	o, ok := r.heap[p]
	if !ok {
		return 0, fmt.Errorf("dead pointer %#x", p)
	}
	if i < 0 || i >= len(o.fields) {
		return 0, fmt.Errorf("field %d out of range for %d-field value", i, len(o.fields))
	}
	return o.fields[i], nil
}

func (r *Runtime) FieldIndex(typ gcbridge.Ptr, name string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.heap[typ]
	if !ok || o.info == nil {
		return 0, false
	}
	for i, f := range o.info.fields {
		if f == name {
			return i, true
		}
	}
	return 0, false
}

func (r *Runtime) TypeFor(kind gcbridge.TypeKind) (gcbridge.Ptr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.types[kind]
	return p, ok
}

// Globals lists the qualified names of every module-level binding, sorted.
func (r *Runtime) Globals() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.globals))
	for name := range r.globals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Runtime) Global(module, name string) (gcbridge.Ptr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.globals[module+"."+name]
	return p, ok
}

// PushGCFrame registers a root frame with the collector.
func (r *Runtime) PushGCFrame(capacity int) (gcbridge.GCFrame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.running(); err != nil {
		return nil, err
	}
	f := &frame{rt: r, fixed: capacity > 0}
	if capacity > 0 {
		f.slots = make([]gcbridge.Ptr, capacity)
	}
	r.frames = append(r.frames, f)
	return f, nil
}

// PopGCFrame releases a registered frame. Several logical root stacks share
// one runtime and interleave when tasks suspend, so pop order is only LIFO
// per stack; the collector just needs the frame out of its root set.
func (r *Runtime) PopGCFrame(g gcbridge.GCFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := g.(*frame)
	if !ok {
		return fmt.Errorf("foreign GC frame")
	}
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i] == f {
			r.frames = append(r.frames[:i], r.frames[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("frame is not registered")
}

func (r *Runtime) running() error {
	if !r.initialized {
		return fmt.Errorf("memrt not initialized")
	}
	if r.closed {
		return fmt.Errorf("memrt is shut down")
	}
	return nil
}

// newObject assigns a pointer and places o in the heap. Caller holds the
// lock. typ of 0 means the object is its own type cell (the DataType type).
func (r *Runtime) newObject(typ gcbridge.Ptr, o *object) gcbridge.Ptr {
	p := r.next
	r.next += 0x10
	o.typ = typ
	if t, ok := r.heap[typ]; ok && t.info != nil {
		o.kind = t.info.desc.Kind
	}
	r.heap[p] = o
	return p
}

func (r *Runtime) newType(name string, kind gcbridge.TypeKind, size uint32, fields ...string) gcbridge.Ptr {
	info := &typeInfo{
		desc:   gcbridge.TypeDesc{Name: name, Kind: kind, Size: size},
		fields: fields,
	}
	p := r.newObject(r.types[gcbridge.KindDataType], &object{info: info})
	r.heap[p].kind = gcbridge.KindDataType
	r.typeObjs = append(r.typeObjs, p)
	return p
}

func (r *Runtime) bootstrapTypes() {
	// The DataType type is its own type; patch the self reference after
	// the cell exists.
	dt := r.newType("DataType", gcbridge.KindDataType, 0)
	r.heap[dt].typ = dt
	r.types[gcbridge.KindDataType] = dt

	prim := []struct {
		name string
		kind gcbridge.TypeKind
		size uint32
	}{
		{"Nothing", gcbridge.KindNothing, 0},
		{"Bool", gcbridge.KindBool, 1},
		{"Int8", gcbridge.KindInt8, 1},
		{"Int16", gcbridge.KindInt16, 2},
		{"Int32", gcbridge.KindInt32, 4},
		{"Int64", gcbridge.KindInt64, 8},
		{"UInt8", gcbridge.KindUInt8, 1},
		{"UInt16", gcbridge.KindUInt16, 2},
		{"UInt32", gcbridge.KindUInt32, 4},
		{"UInt64", gcbridge.KindUInt64, 8},
		{"Float32", gcbridge.KindFloat32, 4},
		{"Float64", gcbridge.KindFloat64, 8},
		{"String", gcbridge.KindString, 0},
		{"Function", gcbridge.KindFunction, 0},
	}
	for _, t := range prim {
		r.types[t.kind] = r.newType(t.name, t.kind, t.size)
	}

	r.exceptionTypes = map[string]gcbridge.Ptr{}
	for _, name := range []string{"DivideError", "DomainError", "ErrorException", "MethodError"} {
		r.exceptionTypes[name] = r.newType(name, gcbridge.KindException, 0, "msg")
	}
	r.mutCellType = r.newType("MutCell", gcbridge.KindStruct, 0, "value")
}
