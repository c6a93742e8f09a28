package runconfig

import "github.com/roach88/configured/internal/ir"

// Merge returns dst overlaid with src. Objects merge recursively; any other
// value in src replaces the one in dst. Neither input is modified.
func Merge(dst, src ir.Object) ir.Object {
	out := make(ir.Object, len(dst)+len(src))
	for k, v := range dst {
		out[k] = ir.Clone(v)
	}
	for k, srcVal := range src {
		srcObj, srcIsObj := srcVal.(ir.Object)
		dstObj, dstIsObj := out[k].(ir.Object)
		if srcIsObj && dstIsObj {
			out[k] = Merge(dstObj, srcObj)
			continue
		}
		out[k] = ir.Clone(srcVal)
	}
	return out
}

// Lookup walks path through nested objects.
func Lookup(obj ir.Object, path ...string) (ir.Value, bool) {
	var cur ir.Value = obj
	for _, key := range path {
		o, ok := cur.(ir.Object)
		if !ok {
			return nil, false
		}
		cur, ok = o[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
