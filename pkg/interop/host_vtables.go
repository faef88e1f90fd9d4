package interop

import (
	"errors"
	"io"
	"sync"
	"unicode/utf16"
	"unsafe"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"

	"github.com/justyntemme/vst3host/pkg/framework/debug"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

var log = debug.Default().Named("interop")

func rc(r vst3.Result) uintptr { return uintptr(uint32(r)) }

func rcErr(err error) uintptr { return rc(vst3.ResultOf(err)) }

// guard turns a panic inside a host callback into kInternalError so it
// never unwinds into plugin code.
func guard(ret *uintptr) {
	if p := recover(); p != nil {
		log.Error("panic in host callback", zap.Any("panic", p), zap.Stack("stack"))
		*ret = rc(vst3.InternalError)
	}
}

var (
	unknownOnce sync.Once
	unknownFns  [3]uintptr
)

func withUnknown(fns ...any) []uintptr {
	unknownOnce.Do(func() {
		unknownFns = [3]uintptr{
			purego.NewCallback(cbQueryInterface),
			purego.NewCallback(cbAddRef),
			purego.NewCallback(cbRelease),
		}
	})
	out := make([]uintptr, 0, 3+len(fns))
	out = append(out, unknownFns[:]...)
	for _, fn := range fns {
		out = append(out, purego.NewCallback(fn))
	}
	return out
}

func cbQueryInterface(this, iid, obj uintptr) (ret uintptr) {
	defer guard(&ret)
	s := shellAt(this)
	id := *(*vst3.TUID)(ptrAt(iid))
	out := (*uintptr)(ptrAt(obj))
	if id == vst3.IIDFUnknown || id == s.iid {
		s.addRef()
		*out = this
		return rc(vst3.ResultOk)
	}
	*out = 0
	return rc(vst3.NoInterface)
}

func cbAddRef(this uintptr) uintptr { return uintptr(shellAt(this).addRef()) }

func cbRelease(this uintptr) uintptr { return uintptr(shellAt(this).release()) }

// IHostApplication

func buildHostAppVtbl() []uintptr {
	return withUnknown(
		func(this, name uintptr) (ret uintptr) {
			defer guard(&ret)
			h := shellAt(this).obj.(vst3.HostApplication)
			(*vst3.String128)(ptrAt(name)).Set(h.Name())
			return rc(vst3.ResultOk)
		},
		func(this, cid, iid, obj uintptr) (ret uintptr) {
			defer guard(&ret)
			h := shellAt(this).obj.(vst3.HostApplication)
			out := (*uintptr)(ptrAt(obj))
			*out = 0
			u, err := h.CreateInstance(*(*vst3.TUID)(ptrAt(cid)), *(*vst3.TUID)(ptrAt(iid)))
			if err != nil {
				return rcErr(err)
			}
			*out = Expose(u)
			return rc(vst3.ResultOk)
		},
	)
}

// IComponentHandler

func buildHandlerVtbl() []uintptr {
	handler := func(this uintptr) vst3.ComponentHandler {
		return shellAt(this).obj.(vst3.ComponentHandler)
	}
	return withUnknown(
		func(this uintptr, id uint32) (ret uintptr) {
			defer guard(&ret)
			return rcErr(handler(this).BeginEdit(id))
		},
		func(this uintptr, id uint32, value float64) (ret uintptr) {
			defer guard(&ret)
			return rcErr(handler(this).PerformEdit(id, value))
		},
		func(this uintptr, id uint32) (ret uintptr) {
			defer guard(&ret)
			return rcErr(handler(this).EndEdit(id))
		},
		func(this uintptr, flags int32) (ret uintptr) {
			defer guard(&ret)
			return rcErr(handler(this).RestartComponent(flags))
		},
	)
}

// IPlugFrame

func buildFrameVtbl() []uintptr {
	return withUnknown(
		func(this, view, rect uintptr) (ret uintptr) {
			defer guard(&ret)
			f := shellAt(this).obj.(vst3.PlugFrame)
			v := &nativeView{Object: Object{ptr: view}}
			return rcErr(f.ResizeView(v, (*vst3.ViewRect)(ptrAt(rect))))
		},
	)
}

// IBStream

func buildStreamVtbl() []uintptr {
	stream := func(this uintptr) vst3.Stream { return shellAt(this).obj.(vst3.Stream) }
	transfer := func(op func([]byte) (int, error), buffer uintptr, numBytes int32, done uintptr) uintptr {
		n := 0
		var err error
		if buffer != 0 && numBytes > 0 {
			n, err = op(unsafe.Slice((*byte)(ptrAt(buffer)), numBytes))
		}
		if done != 0 {
			*(*int32)(ptrAt(done)) = int32(n)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return rc(vst3.ResultFalse)
		}
		return rc(vst3.ResultOk)
	}
	return withUnknown(
		func(this, buffer uintptr, numBytes int32, numRead uintptr) (ret uintptr) {
			defer guard(&ret)
			return transfer(stream(this).Read, buffer, numBytes, numRead)
		},
		func(this, buffer uintptr, numBytes int32, numWritten uintptr) (ret uintptr) {
			defer guard(&ret)
			return transfer(stream(this).Write, buffer, numBytes, numWritten)
		},
		func(this uintptr, pos int64, mode int32, result uintptr) (ret uintptr) {
			defer guard(&ret)
			p, err := stream(this).Seek(pos, int(mode))
			if result != 0 {
				*(*int64)(ptrAt(result)) = p
			}
			return rcErr(err)
		},
		func(this, pos uintptr) (ret uintptr) {
			defer guard(&ret)
			p, err := stream(this).Tell()
			if pos != 0 {
				*(*int64)(ptrAt(pos)) = p
			}
			return rcErr(err)
		},
	)
}

// IParameterChanges

func buildChangesVtbl() []uintptr {
	changes := func(this uintptr) vst3.ParameterChanges {
		return shellAt(this).obj.(vst3.ParameterChanges)
	}
	return withUnknown(
		func(this uintptr) (ret uintptr) {
			defer guard(&ret)
			return uintptr(changes(this).ParameterCount())
		},
		func(this uintptr, index int32) (ret uintptr) {
			defer guard(&ret)
			q := changes(this).ParameterData(index)
			if q == nil {
				return 0
			}
			return Expose(q)
		},
		func(this, id, index uintptr) (ret uintptr) {
			defer guard(&ret)
			q, idx := changes(this).AddParameterData(*(*uint32)(ptrAt(id)))
			if index != 0 {
				*(*int32)(ptrAt(index)) = idx
			}
			if q == nil {
				return 0
			}
			return Expose(q)
		},
	)
}

// IParamValueQueue

func buildQueueVtbl() []uintptr {
	queue := func(this uintptr) vst3.ParamValueQueue {
		return shellAt(this).obj.(vst3.ParamValueQueue)
	}
	return withUnknown(
		func(this uintptr) (ret uintptr) {
			defer guard(&ret)
			return uintptr(queue(this).ParameterID())
		},
		func(this uintptr) (ret uintptr) {
			defer guard(&ret)
			return uintptr(queue(this).PointCount())
		},
		func(this uintptr, index int32, offset, value uintptr) (ret uintptr) {
			defer guard(&ret)
			o, v, err := queue(this).Point(index)
			if err != nil {
				return rcErr(err)
			}
			*(*int32)(ptrAt(offset)) = o
			*(*float64)(ptrAt(value)) = v
			return rc(vst3.ResultOk)
		},
		func(this uintptr, offset int32, value float64, index uintptr) (ret uintptr) {
			defer guard(&ret)
			idx, err := queue(this).AddPoint(offset, value)
			if index != 0 {
				*(*int32)(ptrAt(index)) = idx
			}
			return rcErr(err)
		},
	)
}

// IEventList

func buildEventsVtbl() []uintptr {
	events := func(this uintptr) vst3.EventList { return shellAt(this).obj.(vst3.EventList) }
	return withUnknown(
		func(this uintptr) (ret uintptr) {
			defer guard(&ret)
			return uintptr(events(this).EventCount())
		},
		func(this uintptr, index int32, e uintptr) (ret uintptr) {
			defer guard(&ret)
			return rcErr(events(this).Event(index, (*vst3.Event)(ptrAt(e))))
		},
		func(this, e uintptr) (ret uintptr) {
			defer guard(&ret)
			return rcErr(events(this).AddEvent((*vst3.Event)(ptrAt(e))))
		},
	)
}

// IConnectionPoint

func wrapConnection(p uintptr) vst3.ConnectionPoint {
	if obj, ok := lookupShell(p); ok {
		if cp, ok := obj.(vst3.ConnectionPoint); ok {
			return cp
		}
	}
	return &nativeConnectionPoint{Object: Object{ptr: p}}
}

func wrapMessage(p uintptr) vst3.Message {
	if obj, ok := lookupShell(p); ok {
		if m, ok := obj.(vst3.Message); ok {
			return m
		}
	}
	return &nativeMessage{Object: Object{ptr: p}}
}

func buildConnectionVtbl() []uintptr {
	conn := func(this uintptr) vst3.ConnectionPoint {
		return shellAt(this).obj.(vst3.ConnectionPoint)
	}
	return withUnknown(
		func(this, other uintptr) (ret uintptr) {
			defer guard(&ret)
			if other == 0 {
				return rc(vst3.InvalidArgument)
			}
			return rcErr(conn(this).Connect(wrapConnection(other)))
		},
		func(this, other uintptr) (ret uintptr) {
			defer guard(&ret)
			if other == 0 {
				return rc(vst3.InvalidArgument)
			}
			return rcErr(conn(this).Disconnect(wrapConnection(other)))
		},
		func(this, msg uintptr) (ret uintptr) {
			defer guard(&ret)
			if msg == 0 {
				return rc(vst3.InvalidArgument)
			}
			return rcErr(conn(this).Notify(wrapMessage(msg)))
		},
	)
}

// IMessage

func buildMessageVtbl() []uintptr {
	return withUnknown(
		func(this uintptr) (ret uintptr) {
			defer guard(&ret)
			s := shellAt(this)
			s.cstr = cString(s.obj.(vst3.Message).MessageID())
			return uintptr(unsafe.Pointer(&s.cstr[0]))
		},
		func(this, id uintptr) (ret uintptr) {
			defer guard(&ret)
			shellAt(this).obj.(vst3.Message).SetMessageID(goString(id))
			return 0
		},
		func(this uintptr) (ret uintptr) {
			defer guard(&ret)
			attrs := shellAt(this).obj.(vst3.Message).Attributes()
			if attrs == nil {
				return 0
			}
			return Expose(attrs)
		},
	)
}

// IAttributeList

func buildAttributesVtbl() []uintptr {
	attrs := func(this uintptr) vst3.AttributeList {
		return shellAt(this).obj.(vst3.AttributeList)
	}
	return withUnknown(
		func(this, id uintptr, v int64) (ret uintptr) {
			defer guard(&ret)
			return rcErr(attrs(this).SetInt(goString(id), v))
		},
		func(this, id, out uintptr) (ret uintptr) {
			defer guard(&ret)
			v, err := attrs(this).Int(goString(id))
			if err != nil {
				return rcErr(err)
			}
			*(*int64)(ptrAt(out)) = v
			return rc(vst3.ResultOk)
		},
		func(this, id uintptr, v float64) (ret uintptr) {
			defer guard(&ret)
			return rcErr(attrs(this).SetFloat(goString(id), v))
		},
		func(this, id, out uintptr) (ret uintptr) {
			defer guard(&ret)
			v, err := attrs(this).Float(goString(id))
			if err != nil {
				return rcErr(err)
			}
			*(*float64)(ptrAt(out)) = v
			return rc(vst3.ResultOk)
		},
		func(this, id, str uintptr) (ret uintptr) {
			defer guard(&ret)
			return rcErr(attrs(this).SetString(goString(id), goString16(str)))
		},
		func(this, id, buf uintptr, sizeInBytes uint32) (ret uintptr) {
			defer guard(&ret)
			v, err := attrs(this).String(goString(id))
			if err != nil {
				return rcErr(err)
			}
			units := sizeInBytes / 2
			if units == 0 {
				return rc(vst3.InvalidArgument)
			}
			dst := unsafe.Slice((*uint16)(ptrAt(buf)), units)
			n := copy(dst[:units-1], utf16.Encode([]rune(v)))
			dst[n] = 0
			return rc(vst3.ResultOk)
		},
		func(this, id, data uintptr, size uint32) (ret uintptr) {
			defer guard(&ret)
			var b []byte
			if data != 0 && size > 0 {
				b = append(b, unsafe.Slice((*byte)(ptrAt(data)), size)...)
			}
			return rcErr(attrs(this).SetBinary(goString(id), b))
		},
		func(this, id, data, size uintptr) (ret uintptr) {
			defer guard(&ret)
			b, err := attrs(this).Binary(goString(id))
			if err != nil {
				return rcErr(err)
			}
			var p uintptr
			if len(b) > 0 {
				p = uintptr(unsafe.Pointer(&b[0]))
			}
			*(*uintptr)(ptrAt(data)) = p
			*(*uint32)(ptrAt(size)) = uint32(len(b))
			return rc(vst3.ResultOk)
		},
	)
}
