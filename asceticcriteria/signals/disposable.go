package signals

func NewDisposable(dispose func()) Disposable {
	return &disposableImp{dispose: dispose}
}

type disposableImp struct {
	dispose func()
	done    bool
}

func (d *disposableImp) Dispose() {
	if d.done {
		return
	}
	d.done = true
	d.dispose()
}

func NewCompositeDisposable(disposables ...Disposable) Disposable {
	return &compositeDisposable{disposables: disposables}
}

type compositeDisposable struct {
	disposables []Disposable
}

func (d *compositeDisposable) Dispose() {
	for _, inner := range d.disposables {
		inner.Dispose()
	}
}
