package primitive

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/csml-dev/csml-engine/internal/source"
)

var arrayMethods = table{
	"type_of":    {Read, arrTypeOf},
	"length":     {Read, arrLength},
	"push":       {Write, arrPush},
	"pop":        {Write, arrPop},
	"insert_at":  {Write, arrInsertAt},
	"remove_at":  {Write, arrRemoveAt},
	"contains":   {Read, arrContains},
	"index_of":   {Read, arrIndexOf},
	"slice":      {Read, arrSlice},
	"sort":       {Write, arrSort},
	"join":       {Read, arrJoin},
	"first":      {Read, arrFirst},
	"last":       {Read, arrLast},
	"one_of":     {Read, arrOneOf},
	"shuffle":    {Write, arrShuffle},
}

func arrTypeOf(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "type_of", 0, len(args))
	}
	return Str(r.Kind().String()), nil
}

func arrLength(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "length", 0, len(args))
	}
	return Int(len(r.(*Array).Items)), nil
}

func arrPush(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "push", 1, len(args))
	}
	a := r.(*Array)
	a.Items = append(a.Items, args[0])
	return a, nil
}

func arrPop(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "pop", 0, len(args))
	}
	a := r.(*Array)
	if len(a.Items) == 0 {
		return nil, indexOutOfRange(iv, 0, 0)
	}
	last := a.Items[len(a.Items)-1]
	a.Items = a.Items[:len(a.Items)-1]
	return last, nil
}

func arrInsertAt(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 2 {
		return nil, wantArity(iv, "insert_at", 2, len(args))
	}
	a := r.(*Array)
	idx, ok := args[0].(Int)
	if !ok {
		return nil, badArgument(iv, "insert_at expects an int index")
	}
	i := int(idx)
	if i < 0 || i > len(a.Items) {
		return nil, indexOutOfRange(iv, i, len(a.Items))
	}
	a.Items = append(a.Items[:i], append([]Value{args[1]}, a.Items[i:]...)...)
	return a, nil
}

func arrRemoveAt(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "remove_at", 1, len(args))
	}
	a := r.(*Array)
	idx, ok := args[0].(Int)
	if !ok {
		return nil, badArgument(iv, "remove_at expects an int index")
	}
	i := int(idx)
	if i < 0 || i >= len(a.Items) {
		return nil, indexOutOfRange(iv, i, len(a.Items))
	}
	removed := a.Items[i]
	a.Items = append(a.Items[:i], a.Items[i+1:]...)
	return removed, nil
}

func arrContains(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "contains", 1, len(args))
	}
	a := r.(*Array)
	for _, item := range a.Items {
		if Equal(item, args[0]) {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

func arrIndexOf(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "index_of", 1, len(args))
	}
	a := r.(*Array)
	for i, item := range a.Items {
		if Equal(item, args[0]) {
			return Int(i), nil
		}
	}
	return Int(-1), nil
}

func arrSlice(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 && len(args) != 2 {
		return nil, badArgument(iv, "slice expects 1 or 2 arguments, got %d", len(args))
	}
	a := r.(*Array)
	start, ok := args[0].(Int)
	if !ok {
		return nil, badArgument(iv, "slice expects an int start argument")
	}
	end := Int(len(a.Items))
	if len(args) == 2 {
		e, ok := args[1].(Int)
		if !ok {
			return nil, badArgument(iv, "slice expects an int end argument")
		}
		end = e
	}
	if int(start) < 0 || int(end) > len(a.Items) || int(start) > int(end) {
		return nil, indexOutOfRange(iv, int(start), len(a.Items))
	}
	out := make([]Value, end-start)
	copy(out, a.Items[start:end])
	return NewArray(out...), nil
}

func arrSort(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "sort", 0, len(args))
	}
	a := r.(*Array)
	var sortErr error
	sort.SliceStable(a.Items, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		less, ok := Less(a.Items[i], a.Items[j])
		if !ok {
			sortErr = badArgument(iv, "sort: elements of type %s and %s are not ordered", a.Items[i].Kind(), a.Items[j].Kind())
			return false
		}
		return less
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return a, nil
}

func arrJoin(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "join", 1, len(args))
	}
	sep, ok := args[0].(Str)
	if !ok {
		return nil, badArgument(iv, "join expects a string separator")
	}
	a := r.(*Array)
	parts := make([]string, len(a.Items))
	for i, item := range a.Items {
		parts[i] = item.Display()
	}
	return Str(strings.Join(parts, string(sep))), nil
}

func arrFirst(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "first", 0, len(args))
	}
	a := r.(*Array)
	if len(a.Items) == 0 {
		return nil, indexOutOfRange(iv, 0, 0)
	}
	return a.Items[0], nil
}

func arrLast(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "last", 0, len(args))
	}
	a := r.(*Array)
	if len(a.Items) == 0 {
		return nil, indexOutOfRange(iv, 0, 0)
	}
	return a.Items[len(a.Items)-1], nil
}

func arrOneOf(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "one_of", 0, len(args))
	}
	a := r.(*Array)
	if len(a.Items) == 0 {
		return nil, indexOutOfRange(iv, 0, 0)
	}
	return a.Items[rand.Intn(len(a.Items))], nil
}

func arrShuffle(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "shuffle", 0, len(args))
	}
	a := r.(*Array)
	rand.Shuffle(len(a.Items), func(i, j int) {
		a.Items[i], a.Items[j] = a.Items[j], a.Items[i]
	})
	return a, nil
}
