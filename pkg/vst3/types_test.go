package vst3

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructLayout(t *testing.T) {
	tests := []struct {
		name string
		size uintptr
		want uintptr
	}{
		{"Event", unsafe.Sizeof(Event{}), 48},
		{"BusInfo", unsafe.Sizeof(BusInfo{}), 276},
		{"ParameterInfo", unsafe.Sizeof(ParameterInfo{}), 792},
		{"ProcessSetup", unsafe.Sizeof(ProcessSetup{}), 24},
		{"ProcessContext", unsafe.Sizeof(ProcessContext{}), 112},
		{"FactoryInfo", unsafe.Sizeof(FactoryInfo{}), 452},
		{"ClassInfoRaw", unsafe.Sizeof(ClassInfoRaw{}), 116},
		{"ClassInfo2Raw", unsafe.Sizeof(ClassInfo2Raw{}), 440},
		{"UnitInfo", unsafe.Sizeof(UnitInfo{}), 268},
		{"ViewRect", unsafe.Sizeof(ViewRect{}), 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.size)
		})
	}

	var e Event
	assert.Equal(t, uintptr(24), unsafe.Offsetof(e.payload))
	var pi ParameterInfo
	assert.Equal(t, uintptr(776), unsafe.Offsetof(pi.DefaultNormalizedValue))
	var pc ProcessContext
	assert.Equal(t, uintptr(88), unsafe.Offsetof(pc.Chord))
	assert.Equal(t, uintptr(104), unsafe.Offsetof(pc.SamplesToNextClock))
}

func TestTUID(t *testing.T) {
	t.Run("words round trip", func(t *testing.T) {
		l1, l2, l3, l4 := IIDComponent.Words()
		assert.Equal(t, [4]uint32{0xE831FF31, 0xF2D54301, 0x928EBBEE, 0x25697802}, [4]uint32{l1, l2, l3, l4})
	})

	t.Run("string", func(t *testing.T) {
		assert.Equal(t, "E831FF31F2D54301928EBBEE25697802", IIDComponent.String())
	})

	t.Run("parse sdk form", func(t *testing.T) {
		id, err := ParseTUID("e831ff31f2d54301928ebbee25697802")
		require.NoError(t, err)
		assert.Equal(t, IIDComponent, id)
	})

	t.Run("parse uuid form", func(t *testing.T) {
		id, err := ParseTUID("E831FF31-F2D5-4301-928E-BBEE25697802")
		require.NoError(t, err)
		assert.Equal(t, IIDComponent, id)
	})

	t.Run("parse garbage", func(t *testing.T) {
		_, err := ParseTUID("not-a-class-id")
		assert.Error(t, err)
	})

	assert.True(t, TUID{}.IsZero())
	assert.False(t, IIDFUnknown.IsZero())
}

func TestResult(t *testing.T) {
	assert.NoError(t, ResultOk.Err())
	assert.ErrorIs(t, NotImplemented.Err(), ErrNotImplemented)
	assert.ErrorIs(t, NoInterface.Err(), ErrNoInterface)
	assert.True(t, IsNotImplemented(NotImplemented.Err()))
	assert.True(t, IsNotImplemented(NoInterface.Err()))
	assert.False(t, IsNotImplemented(InternalError.Err()))

	var re *ResultError
	assert.ErrorAs(t, Result(77).Err(), &re)
	assert.Equal(t, Result(77), ResultOf(re))

	for _, r := range []Result{ResultOk, ResultFalse, InvalidArgument, NotImplemented, NoInterface, NotInitialized, OutOfMemory} {
		assert.Equal(t, r, ResultOf(r.Err()))
	}
}

func TestString128(t *testing.T) {
	s := NewString128("Gain ü")
	assert.Equal(t, "Gain ü", s.String())

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	s.Set(string(long))
	assert.Len(t, s.String(), 127)
	assert.Equal(t, uint16(0), s[127])

	var c8 [8]byte
	CopyChar8(c8[:], "overflowing")
	assert.Equal(t, "overflo", Char8ToString(c8[:]))
}

func TestClassInfoDecode(t *testing.T) {
	var raw ClassInfo2Raw
	raw.CID = IIDComponent
	CopyChar8(raw.Category[:], CategoryAudioEffect)
	CopyChar8(raw.Name[:], "Delay")
	CopyChar8(raw.SubCategories[:], "Fx|Delay")
	CopyChar8(raw.Version[:], "1.2.0")

	info := raw.Decode("Acme")
	assert.Equal(t, "Delay", info.Name)
	assert.Equal(t, "Acme", info.Vendor)
	assert.Equal(t, []string{"Fx", "Delay"}, info.SubCategories)
	assert.Equal(t, "1.2.0", info.Version)
}

func TestSpeakerCount(t *testing.T) {
	assert.Equal(t, 0, SpeakerCount(SpeakerArrEmpty))
	assert.Equal(t, 1, SpeakerCount(SpeakerArrMono))
	assert.Equal(t, 2, SpeakerCount(SpeakerArrStereo))
}
