// Package task offloads managed-runtime calls to a dedicated worker context.
//
// The embedded runtime is not reentrant from arbitrary goroutines: exactly
// one execution context may touch its allocator and root stack at a time. A
// Worker is that context. Submitters never see the root stack; they hand the
// worker a computation and receive a Future that delivers one result:
//
//	w, err := task.NewWorker(binding)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	fut := w.Submit(func(s *task.Scope) (any, error) {
//	    v, err := value.New(s, int64(21))
//	    if err != nil {
//	        return nil, err
//	    }
//	    double, err := value.Global(s, "Base", "+")
//	    if err != nil {
//	        return nil, err
//	    }
//	    sum, err := double.Call(s, v, v)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return value.Unbox[int64](sum)
//	})
//	n, err := fut.Wait(ctx)
//
// Each one-shot task runs inside a private frame chain that is fully unwound
// when it completes, so results must be unboxed to host-native data before
// returning. Tasks run in submission order (FIFO per submitter); a task only
// gives up the worker at an explicit offload point, Scope.Call, and only when
// the binding supports asynchronous calls.
//
// A raise inside an offloaded call becomes a Failed result carrying the
// rooted exception; the exception is re-rooted in a worker-lifetime frame so
// the handle stays valid for the submitter. A panic inside the computation is
// recovered and converted to a Failed result; it never unwinds into the
// worker loop or across the runtime boundary.
//
// Generators keep their initialization frame rooted for the worker's
// lifetime, so state created during init survives across invocations.
// Invocations of one generator are serialized by the worker like any other
// task.
package task
