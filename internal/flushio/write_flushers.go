package flushio

import "io"

// WriteFlushers combines any number of WriteFlusher-s into a single one that
// writes into and flushes all of them. A failing writer does not starve the
// rest; the first error is returned after all have been tried.
func WriteFlushers(wfs ...WriteFlusher) WriteFlusher {
	switch wfs := appendWriteFlusher(nil, wfs...); len(wfs) {
	case 0:
		return nil
	case 1:
		return wfs[0]
	default:
		return wfs
	}
}

type writeFlushers []WriteFlusher

func (wfs writeFlushers) Write(p []byte) (int, error) {
	var err error
	for _, wf := range wfs {
		n, werr := wf.Write(p)
		if werr == nil && n != len(p) {
			werr = io.ErrShortWrite
		}
		if err == nil {
			err = werr
		}
	}
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (wfs writeFlushers) Flush() (err error) {
	for _, wf := range wfs {
		if ferr := wf.Flush(); err == nil {
			err = ferr
		}
	}
	return err
}

func appendWriteFlusher(all writeFlushers, some ...WriteFlusher) writeFlushers {
	for _, one := range some {
		if many, ok := one.(writeFlushers); ok {
			all = append(all, many...)
		} else if one != nil {
			all = append(all, one)
		}
	}
	return all
}
