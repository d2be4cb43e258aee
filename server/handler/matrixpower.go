package handler

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/yhgu2000/strandhttp/httpx"
)

// MatrixPower computes sum([1/k]_{k×k}^n), a deliberately CPU-heavy
// calculation useful for load-testing a deployment: it performs n full
// k×k matrix multiplications rather than any closed-form shortcut.
// Grounded on the original's HttpMatpowsum.
type MatrixPower struct{}

func (MatrixPower) DoHandle(req *httpx.Request, onHandle func(resp *httpx.Response, err error)) {
	header := httpx.Header{"Content-Type": {"text/plain"}}

	u, err := url.ParseRequestURI(req.Target)
	if err != nil {
		onHandle(&httpx.Response{StatusCode: 400, Header: header, Body: []byte("Invalid URI")}, nil)
		return
	}

	q := u.Query()
	kStr, nStr := q.Get("k"), q.Get("n")
	if kStr == "" || nStr == "" {
		onHandle(&httpx.Response{StatusCode: 400, Header: header, Body: []byte("Missing parameter 'k' or 'n'")}, nil)
		return
	}

	k, errK := strconv.ParseUint(kStr, 10, 32)
	n, errN := strconv.ParseUint(nStr, 10, 32)
	if errK != nil || errN != nil || k == 0 {
		onHandle(&httpx.Response{StatusCode: 400, Header: header, Body: []byte("Invalid parameter 'k' or 'n'")}, nil)
		return
	}

	ans := matpowsum(uint32(k), uint32(n))
	onHandle(&httpx.Response{
		StatusCode: 200,
		Header:     header,
		Body:       []byte(fmt.Sprintf("matpowsum(k=%d, n=%d) = %v", k, n, ans)),
	}, nil)
}

type mat struct {
	rank uint32
	data []float64
}

func newMat(rank uint32) mat { return mat{rank: rank, data: make([]float64, rank*rank)} }

func (m mat) set(v float64) mat {
	for i := range m.data {
		m.data[i] = v
	}
	return m
}

func (m mat) mul(other mat) mat {
	ret := newMat(m.rank)
	for i := uint32(0); i < m.rank; i++ {
		for j := uint32(0); j < m.rank; j++ {
			var s float64
			for k := uint32(0); k < m.rank; k++ {
				s += m.data[i*m.rank+k] * other.data[k*m.rank+j]
			}
			ret.data[i*m.rank+j] = s
		}
	}
	return ret
}

func (m mat) pow(n uint32) mat {
	ret := newMat(m.rank)
	for i := uint32(0); i < m.rank; i++ {
		ret.data[i*m.rank+i] = 1
	}
	for i := uint32(0); i < n; i++ {
		ret = ret.mul(m)
	}
	return ret
}

func (m mat) sum() float64 {
	var s float64
	for _, v := range m.data {
		s += v
	}
	return s
}

func matpowsum(k, n uint32) float64 {
	return newMat(k).set(1 / float64(k)).pow(n).sum()
}
