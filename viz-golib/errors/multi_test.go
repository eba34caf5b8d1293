package errors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendNil(t *testing.T) {
	err := New("error")
	errs := Append(nil, err).raw()
	require.Len(t, errs, 1)
	require.Equal(t, err, errs[0])

	errs = Append(errList([]error{err}), nil).raw()
	require.Len(t, errs, 1)
	require.Equal(t, err, errs[0])
}

func TestAppendMulti(t *testing.T) {
	err0 := New("error0")
	err1 := New("error1")
	err2 := New("error2")

	var errs01 Errors
	errs01 = Append(errs01, err0)
	errs01 = Append(errs01, err1)
	var errs2 Errors
	errs2 = Append(errs2, err2)

	errs := Append(errs01, errs2).raw()
	require.Len(t, errs, 3)
	require.Equal(t, err0, errs[0])
	require.Equal(t, err1, errs[1])
	require.Equal(t, err2, errs[2])
}

func TestCombineNil(t *testing.T) {
	err := New("error")
	require.Equal(t, err, Combine(err, nil))
	require.Equal(t, err, Combine(nil, err))
	require.Nil(t, Combine(nil, nil))
}

func TestCombineBasic(t *testing.T) {
	err0 := New("error0")
	err1 := New("error1")

	errs := Combine(err0, err1).(Errors).raw()
	require.Len(t, errs, 2)
	require.Equal(t, err0, errs[0])
	require.Equal(t, err1, errs[1])
}

func TestDefer(t *testing.T) {
	err0 := New("error0")
	err1 := New("error1")

	run := func() (err error) {
		defer Defer(&err, func() error { return err1 })
		return err0
	}

	errs := run().(Errors).raw()
	require.Len(t, errs, 2)
	require.Equal(t, err0, errs[0])
	require.Equal(t, err1, errs[1])
}
