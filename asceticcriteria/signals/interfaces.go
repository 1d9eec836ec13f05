package signals

type Observer[E any] func(E)

type Signal[E any] interface {
	Attach(observer Observer[E], observerID ...any) Disposable
	Detach(observer Observer[E], observerID ...any)
	Notify(event E)
}

// Disposable undoes a previous attachment (or any other registration).
type Disposable interface {
	Dispose()
}
