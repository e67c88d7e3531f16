package glbuild

import (
	"errors"
	"fmt"
)

// Kind enumerates the GLSL value types a slot can carry. The zero value is
// KindError, the sentinel for a slot whose resolution failed. Concrete kinds
// are ordered by channel width, scalars first and matrices last. This order
// decides implicit conversions between kinds: a source kind converts to a
// declared kind when the source is at least as wide, or when the source is a
// lone float, which broadcasts to anything.
type Kind uint8

const (
	// KindError marks a slot whose type resolution failed.
	KindError Kind = iota
	KindFloat
	KindVec2
	KindVec3
	KindVec4
	KindMat2
	KindMat3
	KindMat4
	// KindDynamic declares a slot which adapts its concrete kind to whatever
	// is connected to the node. It is never the result of a resolution.
	KindDynamic
)

var kindNames = [...]string{
	KindError:   "error",
	KindFloat:   "float",
	KindVec2:    "vec2",
	KindVec3:    "vec3",
	KindVec4:    "vec4",
	KindMat2:    "mat2",
	KindMat3:    "mat3",
	KindMat4:    "mat4",
	KindDynamic: "dynamic",
}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return "Kind(" + string(rune('0'+k)) + ")"
	}
	return kindNames[k]
}

// ParseKind parses a kind from its GLSL type name as found in graph documents.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if Kind(k) != KindError && s == name {
			return Kind(k), nil
		}
	}
	return KindError, fmt.Errorf("unknown kind %q", s)
}

// IsConcrete returns true for float, vector and matrix kinds. It returns
// false for the error and dynamic sentinels.
func (k Kind) IsConcrete() bool { return k >= KindFloat && k <= KindMat4 }

// IsMatrix returns true for mat2, mat3 and mat4 kinds.
func (k Kind) IsMatrix() bool { return k >= KindMat2 && k <= KindMat4 }

// IsVector returns true for vec2, vec3 and vec4 kinds.
func (k Kind) IsVector() bool { return k >= KindVec2 && k <= KindVec4 }

// Channels returns the number of float channels a value of kind k holds.
// It returns 0 for non-concrete kinds.
func (k Kind) Channels() int {
	switch k {
	case KindFloat:
		return 1
	case KindVec2:
		return 2
	case KindVec3:
		return 3
	case KindVec4:
		return 4
	case KindMat2:
		return 4
	case KindMat3:
		return 9
	case KindMat4:
		return 16
	}
	return 0
}

// Side returns the row/column count of a matrix kind and 0 otherwise.
func (k Kind) Side() int {
	switch k {
	case KindMat2:
		return 2
	case KindMat3:
		return 3
	case KindMat4:
		return 4
	}
	return 0
}

// AppendTypename appends the GLSL type name of a concrete kind.
func (k Kind) AppendTypename(b []byte) []byte {
	return append(b, kindNames[k]...)
}

// ConvertExists reports whether a value of kind from implicitly converts to
// kind to. Conversion exists when from is at least as wide as to in the kind
// ordering, which discards trailing channels, or when from is a lone float,
// which broadcasts. Both kinds must be concrete.
func ConvertExists(from, to Kind) bool {
	if !from.IsConcrete() || !to.IsConcrete() {
		return false
	}
	return from == KindFloat || from >= to
}

// CommonKind returns the kind taken by a value of kind src when read through
// an input declared with kind decl. ok is false and the result KindError when
// no implicit conversion from src to decl exists.
func CommonKind(src, decl Kind) (k Kind, ok bool) {
	if !ConvertExists(src, decl) {
		return KindError, false
	}
	return decl, true
}

// Operand pairs a GLSL expression with the concrete kind it evaluates to.
type Operand struct {
	Expr []byte
	Kind Kind
}

// Append appends the operand expression to b.
func (o Operand) Append(b []byte) []byte { return append(b, o.Expr...) }

// AppendDecl appends a GLSL declaration header "kind expr" to b. It is meant
// for operands whose expression is a bare variable name.
func (o Operand) AppendDecl(b []byte) []byte {
	b = o.Kind.AppendTypename(b)
	b = append(b, ' ')
	return append(b, o.Expr...)
}

// AppendConvert appends the GLSL expression converting operand o to kind to.
// The conversion must exist per [ConvertExists]; equal kinds append the bare
// expression. Discarded channels follow column-major order so that matrix
// sources truncate to their leading columns.
func AppendConvert(b []byte, o Operand, to Kind) []byte {
	from := o.Kind
	if from == to {
		return o.Append(b)
	}
	switch {
	case from == KindFloat:
		// Broadcast: vecN(x) fills all channels, matN(x) is a diagonal matrix.
		b = to.AppendTypename(b)
		b = append(b, '(')
		b = o.Append(b)
		b = append(b, ')')
	case to == KindFloat:
		b = append(b, '(')
		b = o.Append(b)
		b = append(b, ')')
		if from.IsMatrix() {
			b = append(b, "[0]"...)
		}
		b = append(b, ".x"...)
	case from.IsVector() && to.IsVector():
		b = append(b, '(')
		b = o.Append(b)
		b = append(b, ')')
		b = append(b, swizzles[to.Channels()]...)
	case from.IsMatrix() && to.IsMatrix():
		// GLSL matrix constructors from larger matrices keep the upper-left.
		b = to.AppendTypename(b)
		b = append(b, '(')
		b = o.Append(b)
		b = append(b, ')')
	case from.IsMatrix() && to.IsVector():
		b = appendMatToVec(b, o, to)
	default:
		// Unreachable when the conversion exists. Emit a constructor so the
		// failure surfaces as a GLSL compile error naming both kinds.
		b = to.AppendTypename(b)
		b = append(b, '(')
		b = o.Append(b)
		b = append(b, ')')
	}
	return b
}

var swizzles = [5]string{2: ".xy", 3: ".xyz", 4: ".xyzw"}

// appendMatToVec takes the leading column-major components of a matrix.
// The first column covers most cases; mat2 sources need a second column to
// fill three or four channels.
func appendMatToVec(b []byte, o Operand, to Kind) []byte {
	n := to.Channels()
	side := o.Kind.Side()
	if side >= n {
		// Leading column has enough components.
		b = append(b, '(')
		b = o.Append(b)
		b = append(b, ")[0]"...)
		if side > n {
			b = append(b, swizzles[n]...)
		}
		return b
	}
	// mat2 to vec3/vec4: splice second column onto the first.
	b = to.AppendTypename(b)
	b = append(b, "(("...)
	b = o.Append(b)
	b = append(b, ")[0],("...)
	b = o.Append(b)
	b = append(b, ")[1]"...)
	if n == 3 {
		b = append(b, ".x"...)
	}
	b = append(b, ')')
	return b
}

// SlotDir distinguishes input slots from output slots.
type SlotDir uint8

const (
	SlotInput SlotDir = iota
	SlotOutput
)

func (d SlotDir) String() string {
	if d == SlotInput {
		return "input"
	}
	return "output"
}

// Slot declares one port of a node: a name unique among the node's slots of
// the same direction, a direction, and a declared kind which may be
// KindDynamic. Default holds the channel values an unconnected input takes.
// Statically kinded inputs read Default per channel; dynamically kinded
// inputs broadcast Default[0] over whatever kind unification picks.
type Slot struct {
	Name    string
	Dir     SlotDir
	Kind    Kind
	Default [4]float32
}

// Input returns an input slot declaration with a zero default.
func Input(name string, k Kind) Slot {
	return Slot{Name: name, Dir: SlotInput, Kind: k}
}

// InputDefault returns an input slot declaration with up to four default
// channel values.
func InputDefault(name string, k Kind, def ...float32) Slot {
	s := Slot{Name: name, Dir: SlotInput, Kind: k}
	copy(s.Default[:], def)
	return s
}

// Output returns an output slot declaration.
func Output(name string, k Kind) Slot {
	return Slot{Name: name, Dir: SlotOutput, Kind: k}
}

// IsInput returns true for input slots.
func (s Slot) IsInput() bool { return s.Dir == SlotInput }

// AppendDefaultLiteral appends the GLSL literal an unconnected input of
// resolved kind k takes given the slot default. Floats and vectors spread the
// default over their channels; matrices are diagonal matrices of Default[0].
func AppendDefaultLiteral(b []byte, k Kind, def [4]float32) []byte {
	switch {
	case k == KindFloat:
		b = AppendFloat(b, '-', '.', def[0])
	case k.IsVector():
		b = k.AppendTypename(b)
		b = append(b, '(')
		b = AppendFloats(b, ',', '-', '.', def[:k.Channels()]...)
		b = append(b, ')')
	case k.IsMatrix():
		b = k.AppendTypename(b)
		b = append(b, '(')
		b = AppendFloat(b, '-', '.', def[0])
		b = append(b, ')')
	}
	return b
}

// AppendKindLiteral appends a full GLSL literal of kind k from vals, which
// holds at least Channels values in row-major order for matrices. The
// emitted constructor arguments follow GLSL column-major order.
func AppendKindLiteral(b []byte, k Kind, vals []float32) ([]byte, error) {
	n := k.Channels()
	if n == 0 {
		return b, fmt.Errorf("cannot emit literal of kind %s", k.String())
	} else if len(vals) < n {
		return b, fmt.Errorf("%s literal needs %d values, got %d", k.String(), n, len(vals))
	}
	if k == KindFloat {
		return AppendFloat(b, '-', '.', vals[0]), nil
	}
	b = k.AppendTypename(b)
	b = append(b, '(')
	if side := k.Side(); side > 0 {
		for j := 0; j < side; j++ {
			for i := 0; i < side; i++ {
				v := vals[i*side+j] // Column major access, as per OpenGL standard.
				b = AppendFloat(b, '-', '.', v)
				if !(i == side-1 && j == side-1) {
					b = append(b, ',')
				}
			}
		}
	} else {
		b = AppendFloats(b, ',', '-', '.', vals[:n]...)
	}
	b = append(b, ')')
	return b, nil
}

var errNoSlots = errors.New("node declares no slots")

// CountSlots returns the number of input and output slots in decls.
func CountSlots(decls []Slot) (inputs, outputs int) {
	for i := range decls {
		if decls[i].IsInput() {
			inputs++
		} else {
			outputs++
		}
	}
	return inputs, outputs
}

// ValidateSlots checks a slot declaration list: at least one slot, names
// non-empty and unique per direction, kinds either concrete or dynamic, and
// dynamic outputs only on nodes that also declare an input, since an output
// cannot adapt to connections the node does not receive.
func ValidateSlots(decls []Slot) error {
	if len(decls) == 0 {
		return errNoSlots
	}
	inputs, _ := CountSlots(decls)
	for i := range decls {
		s := decls[i]
		if s.Name == "" {
			return fmt.Errorf("slot %d has empty name", i)
		}
		if !s.Kind.IsConcrete() && s.Kind != KindDynamic {
			return fmt.Errorf("slot %q declares non-declarable kind %s", s.Name, s.Kind.String())
		}
		if s.Kind == KindDynamic && !s.IsInput() && inputs == 0 {
			return fmt.Errorf("dynamic output %q on node with no inputs", s.Name)
		}
		for j := i + 1; j < len(decls); j++ {
			if decls[j].Name == s.Name && decls[j].Dir == s.Dir {
				return fmt.Errorf("duplicate %s slot name %q", s.Dir.String(), s.Name)
			}
		}
	}
	return nil
}
