package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/tessera/pkg/scene"
	"github.com/go-gl/mathgl/mgl32"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites console source before zygomys sees it:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols.
//  2. kebab-case identifiers become snake_case (sphere-radius ->
//     sphere_radius); zygomys reads a hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are left untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			j := skipQuoted(b, i, '"', true)
			result = append(result, b[i:j]...)
			i = j
			continue
		case b[i] == '`':
			j := skipQuoted(b, i, '`', false)
			result = append(result, b[i:j]...)
			i = j
			continue
		case b[i] == ';':
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		case b[i] == ':' && i+1 < len(b) && b[i+1] == '=':
			result = append(result, ':', '=')
			i += 2
			continue
		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			result = append(result, '"')
			result = append(result, kwPrefix...)
			result = append(result, b[i+1:j]...)
			result = append(result, '"')
			i = j
			continue
		case b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

// skipQuoted returns the index just past the literal opened at b[i].
func skipQuoted(b []byte, i int, quote byte, escapes bool) int {
	i++
	for i < len(b) && b[i] != quote {
		if escapes && b[i] == '\\' && i+1 < len(b) {
			i++
		}
		i++
	}
	if i < len(b) {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types
// ---------------------------------------------------------------------------

// sexpVec3 carries a position between builtins: (spawn (vec3 1 0 0)).
type sexpVec3 struct {
	vec mgl32.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			// Trailing keyword with no value is a flag.
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toFloat32(s zygo.Sexp) (float32, error) {
	f, err := toFloat64(s)
	return float32(f), err
}

// toInt extracts an integer. Floats with a fractional part are rejected.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == float64(int(v.Val)) {
			return int(v.Val), nil
		}
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toVec3 extracts a position from a sexpVec3.
func toVec3(s zygo.Sexp) (mgl32.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl32.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toLightKind converts :directional, :point or :spot.
func toLightKind(s zygo.Sexp) (scene.LightKind, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected light kind keyword: %w", err)
	}
	for _, k := range []scene.LightKind{scene.Directional, scene.Point, scene.Spot} {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("invalid light kind %q, expected directional, point or spot", name)
}

// positionArg reads a position given as x y z, as a vec3 or as :at vec3.
func positionArg(pa kwArgs) (mgl32.Vec3, error) {
	if v, ok := pa.kw["at"]; ok {
		return toVec3(v)
	}
	switch len(pa.positional) {
	case 1:
		return toVec3(pa.positional[0])
	case 3:
		var p mgl32.Vec3
		for i, arg := range pa.positional {
			f, err := toFloat32(arg)
			if err != nil {
				return mgl32.Vec3{}, fmt.Errorf("%c: %w", "xyz"[i], err)
			}
			p[i] = f
		}
		return p, nil
	}
	return mgl32.Vec3{}, fmt.Errorf("expected x y z, a vec3 or :at, got %d arguments", len(pa.positional))
}

func sexpInt(n int) zygo.Sexp          { return &zygo.SexpInt{Val: int64(n)} }
func sexpFloat(f float32) zygo.Sexp    { return &zygo.SexpFloat{Val: float64(f)} }
func sexpBool(b bool) zygo.Sexp        { return &zygo.SexpBool{Val: b} }
func sexpPoint(p mgl32.Vec3) zygo.Sexp { return &sexpVec3{vec: p} }

// sexpInts returns ns as a list.
func sexpInts(ns ...int) zygo.Sexp {
	items := make([]zygo.Sexp, len(ns))
	for i, n := range ns {
		items[i] = sexpInt(n)
	}
	return zygo.MakeList(items)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// command registers a builtin that talks to the scene. The builtin fails
// once the evaluation is cancelled and holds the run's lock while it runs.
func (r *run) command(env *zygo.Zlisp, name string, fn func(pa kwArgs) (zygo.Sexp, error)) {
	env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		if r.cancelled.Load() {
			return zygo.SexpNull, errCancelled
		}
		if r.lk != nil {
			r.lk.Lock()
			defer r.lk.Unlock()
			// The run may have been cancelled while waiting for the lock.
			if r.cancelled.Load() {
				return zygo.SexpNull, errCancelled
			}
		}
		return fn(parseArgs(args))
	})
}

// registerBuiltins installs the console builtins into a zygomys
// environment. Source must go through preprocessSource first so that
// :keyword tokens and kebab-case names are recognized.
func registerBuiltins(env *zygo.Zlisp, r *run) {
	cmds := r.cmds

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		p, err := positionArg(kwArgs{positional: args})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
		}
		return sexpPoint(p), nil
	})

	// (spawn 1 0 0), (spawn (vec3 1 0 0)), (spawn :at p)
	r.command(env, "spawn", func(pa kwArgs) (zygo.Sexp, error) {
		p, err := positionArg(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("spawn: %w", err)
		}
		ok := cmds.Spawn(p)
		r.record("spawn", fmt.Sprintf("(%g, %g, %g) -> %t", p[0], p[1], p[2], ok))
		return sexpBool(ok), nil
	})

	// (teleport)
	r.command(env, "teleport", func(pa kwArgs) (zygo.Sexp, error) {
		ok := cmds.Teleport()
		r.record("teleport", fmt.Sprintf("cursor %d -> %t", cmds.Cursor(), ok))
		return sexpBool(ok), nil
	})

	// (resolution) or (resolution 30 20); returns the applied (n m).
	r.command(env, "resolution", func(pa kwArgs) (zygo.Sexp, error) {
		switch len(pa.positional) {
		case 0:
		case 2:
			n, err := toInt(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("resolution: n: %w", err)
			}
			m, err := toInt(pa.positional[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("resolution: m: %w", err)
			}
			if err := cmds.SetResolution(n, m); err != nil {
				return zygo.SexpNull, fmt.Errorf("resolution: %w", err)
			}
			res := cmds.Resolution()
			r.record("resolution", fmt.Sprintf("%dx%d", res.N, res.M))
		default:
			return zygo.SexpNull, fmt.Errorf("resolution takes no arguments or n and m, got %d", len(pa.positional))
		}
		res := cmds.Resolution()
		return sexpInts(res.N, res.M), nil
	})

	// (distance) or (distance 12); returns the applied distance.
	r.command(env, "distance", func(pa kwArgs) (zygo.Sexp, error) {
		switch len(pa.positional) {
		case 0:
			return sexpFloat(cmds.Distance()), nil
		case 1:
			d, err := toFloat32(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("distance: %w", err)
			}
			d = cmds.SetDistance(d)
			r.record("distance", fmt.Sprintf("%g", d))
			return sexpFloat(d), nil
		}
		return zygo.SexpNull, fmt.Errorf("distance takes at most one argument, got %d", len(pa.positional))
	})

	// (wireframe) toggles, (wireframe true) sets; returns the new state.
	r.command(env, "wireframe", func(pa kwArgs) (zygo.Sexp, error) {
		on := !cmds.Wireframe()
		switch len(pa.positional) {
		case 0:
		case 1:
			b, err := toBool(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("wireframe: %w", err)
			}
			on = b
		default:
			return zygo.SexpNull, fmt.Errorf("wireframe takes at most one argument, got %d", len(pa.positional))
		}
		cmds.SetWireframe(on)
		r.record("wireframe", fmt.Sprintf("%t", on))
		return sexpBool(on), nil
	})

	// (count)
	r.command(env, "count", func(pa kwArgs) (zygo.Sexp, error) {
		return sexpInt(cmds.Count()), nil
	})

	// (cursor)
	r.command(env, "cursor", func(pa kwArgs) (zygo.Sexp, error) {
		return sexpInt(cmds.Cursor()), nil
	})

	// (placed 0)
	r.command(env, "placed", func(pa kwArgs) (zygo.Sexp, error) {
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("placed requires an index")
		}
		i, err := toInt(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("placed: %w", err)
		}
		p, err := cmds.Placed(i)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("placed: %w", err)
		}
		return sexpPoint(p), nil
	})

	// (sphere-radius)
	r.command(env, "sphere_radius", func(pa kwArgs) (zygo.Sexp, error) {
		return sexpFloat(cmds.SphereRadius()), nil
	})

	// (light :kind :spot :position (vec3 0 3 0) :spot-dir (vec3 0 -1 0)
	//        :constant 1 :linear 0.1 :quadratic 0 :cutoff 0.8)
	// Keys not given keep their current value.
	r.command(env, "light", func(pa kwArgs) (zygo.Sexp, error) {
		l := cmds.Lighting().Light

		if v, ok := pa.kw["kind"]; ok {
			k, err := toLightKind(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("light: kind: %w", err)
			}
			l.Kind = k
		}
		for key, dst := range map[string]*mgl32.Vec3{"position": &l.Position, "spot-dir": &l.SpotDir} {
			if v, ok := pa.kw[key]; ok {
				p, err := toVec3(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("light: %s: %w", key, err)
				}
				*dst = p
			}
		}
		for key, dst := range map[string]*float32{
			"constant":  &l.Constant,
			"linear":    &l.Linear,
			"quadratic": &l.Quadratic,
			"cutoff":    &l.Cutoff,
		} {
			if v, ok := pa.kw[key]; ok {
				f, err := toFloat32(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("light: %s: %w", key, err)
				}
				*dst = f
			}
		}

		if err := cmds.SetLight(l); err != nil {
			return zygo.SexpNull, fmt.Errorf("light: %w", err)
		}
		r.record("light", l.Kind.String())
		return &zygo.SexpStr{S: l.Kind.String()}, nil
	})
}
