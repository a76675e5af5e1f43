package aram

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/backkem/aram/pkg/apdu"
	"github.com/backkem/aram/pkg/crypto"
	"github.com/backkem/aram/pkg/storage"
	"github.com/backkem/aram/pkg/tlv"
)

type testCard struct {
	t *testing.T
	a *Applet
}

func newCard(t *testing.T, config Config) *testCard {
	t.Helper()
	if config.Random == nil {
		config.Random = crypto.NewSeededRandom([]byte(t.Name()))
	}
	a, err := New(config)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testCard{t: t, a: a}
}

func (c *testCard) send(raw []byte) ([]byte, apdu.StatusWord) {
	c.t.Helper()
	resp, err := apdu.ParseResponse(c.a.Process(raw))
	if err != nil {
		c.t.Fatalf("ParseResponse() error = %v", err)
	}
	return resp.Data, resp.SW
}

func (c *testCard) expect(raw []byte, want apdu.StatusWord) []byte {
	c.t.Helper()
	data, sw := c.send(raw)
	if sw != want {
		c.t.Fatalf("% X -> %v, want %v", raw, sw, want)
	}
	if !sw.IsSuccess() && len(data) != 0 {
		c.t.Fatalf("% X -> %d data bytes with %v", raw, len(data), sw)
	}
	return data
}

func (c *testCard) store(r tlv.RefArDo) {
	c.t.Helper()
	c.expect(storeCmd(r), apdu.SWSuccess)
}

func unhex(s string) []byte {
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		panic(err)
	}
	return b
}

func command(cla, ins byte, p1p2 uint16, data []byte, le int) []byte {
	raw, err := apdu.Command{CLA: cla, INS: ins, P1: byte(p1p2 >> 8), P2: byte(p1p2), Data: data, Le: le}.Bytes()
	if err != nil {
		panic(err)
	}
	return raw
}

func getDataCmd(p1p2 uint16, data []byte) []byte {
	return command(CLA, InsGetData, p1p2, data, apdu.MaxShortLe)
}

func storeDataCmd(data []byte) []byte {
	return command(CLA, InsStoreData, StoreDataP1P2, data, 0)
}

func wrap(tag tlv.Tag, value []byte) []byte {
	out, err := tlv.Append(nil, tag, value)
	if err != nil {
		panic(err)
	}
	return out
}

func storeCmd(r tlv.RefArDo) []byte {
	body, err := r.Marshal()
	if err != nil {
		panic(err)
	}
	return storeDataCmd(wrap(tlv.TagStoreArDo, body))
}

func deleteCmd(inner []byte) []byte {
	return storeDataCmd(wrap(tlv.TagDeleteArDo, inner))
}

func refDo(aid, hash []byte) []byte {
	b, err := tlv.RefArDo{AID: aid, Hash: hash}.MarshalRefDo()
	if err != nil {
		panic(err)
	}
	return b
}

func refArDo(r tlv.RefArDo) []byte {
	b, err := r.Marshal()
	if err != nil {
		panic(err)
	}
	return b
}

var (
	getAllCmd        = getDataCmd(GetAll, nil)
	getNextCmd       = getDataCmd(GetNext, nil)
	getRefreshTagCmd = getDataCmd(GetRefreshTag, nil)
	updateTagCmd     = storeDataCmd([]byte{byte(tlv.TagUpdateRefreshTag), 0x00})
	selectCmd        = command(0x00, InsSelect, 0x0400, AID, apdu.MaxShortLe)

	ruleA = tlv.RefArDo{AID: []byte{1, 2}, Hash: []byte{3, 4, 5}, Rule: []byte{5, 6, 7, 8}}
	ruleB = tlv.RefArDo{AID: []byte{1, 2}, Hash: []byte{0x0A, 0x0B}, Rule: []byte{5, 6, 7, 8}}
)

func TestApplet_Example(t *testing.T) {
	c := newCard(t, Config{})

	c.store(ruleA)
	got := c.expect(getAllCmd, apdu.SWSuccess)
	want := unhex("FF 40 13 E2 11 E1 09 4F 02 01 02 C1 03 03 04 05 E3 04 05 06 07 08")
	if !bytes.Equal(got, want) {
		t.Fatalf("GET ALL = % X, want % X", got, want)
	}

	c.store(ruleB)
	got = c.expect(getAllCmd, apdu.SWSuccess)
	want = unhex("FF 40 25" +
		"E2 10 E1 08 4F 02 01 02 C1 02 0A 0B E3 04 05 06 07 08" +
		"E2 11 E1 09 4F 02 01 02 C1 03 03 04 05 E3 04 05 06 07 08")
	if !bytes.Equal(got, want) {
		t.Fatalf("GET ALL = % X, want % X", got, want)
	}

	c.expect(deleteCmd(unhex("4F 02 01 02")), apdu.SWSuccess)
	got = c.expect(getAllCmd, apdu.SWSuccess)
	if !bytes.Equal(got, unhex("FF 40 00")) {
		t.Errorf("GET ALL after delete = % X, want FF 40 00", got)
	}
	c.expect(getNextCmd, apdu.SWNotFound)
}

func TestApplet_Envelope(t *testing.T) {
	tests := []struct {
		name string
		cla  byte
		ins  byte
		p1p2 uint16
		raw  []byte
		want apdu.StatusWord
	}{
		{name: "interindustry class", cla: 0x00, ins: InsGetData, p1p2: GetAll, want: apdu.SWClaNotSupported},
		{name: "secure messaging class", cla: 0x84, ins: InsGetData, p1p2: GetAll, want: apdu.SWClaNotSupported},
		{name: "logical channel 1", cla: 0x81, ins: InsGetData, p1p2: GetAll, want: apdu.SWSuccess},
		{name: "logical channel 3", cla: 0x83, ins: InsGetData, p1p2: GetRefreshTag, want: apdu.SWSuccess},
		{name: "unknown instruction", cla: CLA, ins: 0xB0, p1p2: 0, want: apdu.SWInsNotSupported},
		{name: "GET DATA bad P1P2", cla: CLA, ins: InsGetData, p1p2: 0xFF41, want: apdu.SWIncorrectP1P2},
		{name: "STORE DATA bad P1P2", cla: CLA, ins: InsStoreData, p1p2: 0x8000, want: apdu.SWIncorrectP1P2},
		{name: "header only", raw: unhex("80 CA"), want: apdu.SWWrongLength},
		{name: "Lc larger than data", raw: unhex("80 E2 90 00 05 F2 00"), want: apdu.SWWrongLength},
		{name: "Lc smaller than data", raw: unhex("80 E2 90 00 01 F2 00 00 00"), want: apdu.SWWrongLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCard(t, Config{})
			raw := tt.raw
			if raw == nil {
				raw = command(tt.cla, tt.ins, tt.p1p2, nil, apdu.MaxShortLe)
			}
			c.expect(raw, tt.want)
		})
	}
}

func TestApplet_Select(t *testing.T) {
	c := newCard(t, Config{})
	c.expect(selectCmd, apdu.SWSuccess)
	c.expect(command(0x00, InsSelect, 0x0400, unhex("A0 00 00 01 51 41 43 4C 01"), 0), apdu.SWFileNotFound)
}

func TestApplet_StoreInvalid(t *testing.T) {
	valid := refArDo(ruleA)
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unknown command tag", wrap(0xF5, valid)},
		{"wrong inner tag", wrap(tlv.TagStoreArDo, wrap(tlv.TagRefDo, valid[2:]))},
		{"truncated", wrap(tlv.TagStoreArDo, valid)[:10]},
		{"aid over capacity", wrap(tlv.TagStoreArDo, wrap(tlv.TagRefArDo, append(
			wrap(tlv.TagRefDo, append(wrap(tlv.TagAidRefDo, make([]byte, 17)), wrap(tlv.TagHashRefDo, nil)...)),
			wrap(tlv.TagArDo, nil)...)))},
		{"hash over capacity", wrap(tlv.TagStoreArDo, wrap(tlv.TagRefArDo, append(
			wrap(tlv.TagRefDo, append(wrap(tlv.TagAidRefDo, nil), wrap(tlv.TagHashRefDo, make([]byte, 21))...)),
			wrap(tlv.TagArDo, nil)...)))},
		{"rule over capacity", wrap(tlv.TagStoreArDo, wrap(tlv.TagRefArDo, append(
			wrap(tlv.TagRefDo, append(wrap(tlv.TagAidRefDo, nil), wrap(tlv.TagHashRefDo, nil)...)),
			wrap(tlv.TagArDo, make([]byte, 163))...)))},
		{"REF-DO length disagrees", wrap(tlv.TagStoreArDo, unhex("E2 11 E1 08 4F 02 01 02 C1 03 03 04 05 E3 04 05 06 07 08"))},
		{"trailing bytes inside F0", wrap(tlv.TagStoreArDo, append(append([]byte{}, valid...), 0x00))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCard(t, Config{})
			c.expect(storeDataCmd(tt.data), apdu.SWDataInvalid)
			if c.a.Len() != 0 {
				t.Errorf("Len() = %d after rejected store", c.a.Len())
			}
		})
	}
}

func TestApplet_StoreMaxSizes(t *testing.T) {
	c := newCard(t, Config{})
	r := tlv.RefArDo{AID: bytes.Repeat([]byte{1}, 16), Hash: bytes.Repeat([]byte{2}, 20), Rule: bytes.Repeat([]byte{3}, 162)}
	c.store(r)

	got := c.expect(getAllCmd, apdu.SWSuccess)
	want := append(unhex("FF 40 81 D0"), refArDo(r)...)
	if !bytes.Equal(got, want) {
		t.Errorf("GET ALL = % X, want % X", got, want)
	}
}

func TestApplet_Delete(t *testing.T) {
	other := tlv.RefArDo{AID: []byte{9}, Hash: []byte{3, 4, 5}, Rule: []byte{1}}
	ruleA2 := tlv.RefArDo{AID: ruleA.AID, Hash: ruleA.Hash, Rule: []byte{0x0A}}

	tests := []struct {
		name  string
		inner []byte
		want  apdu.StatusWord
		left  int
	}{
		{"all", nil, apdu.SWSuccess, 0},
		{"by AID", unhex("4F 02 01 02"), apdu.SWSuccess, 1},
		{"by AID miss", unhex("4F 02 01 03"), apdu.SWNotFound, 4},
		{"by REF-DO", refDo(ruleA.AID, ruleA.Hash), apdu.SWSuccess, 2},
		{"by REF-DO miss", refDo(ruleA.AID, []byte{3, 4}), apdu.SWNotFound, 4},
		{"by REF-AR-DO", refArDo(ruleA), apdu.SWSuccess, 3},
		{"by REF-AR-DO miss", refArDo(tlv.RefArDo{AID: ruleA.AID, Hash: ruleA.Hash, Rule: []byte{1, 2, 3}}), apdu.SWNotFound, 4},
		{"short rule falls back to REF-DO", refArDo(tlv.RefArDo{AID: ruleA.AID, Hash: ruleA.Hash, Rule: []byte{0xEE, 0xEE}}), apdu.SWSuccess, 2},
		{"short rule miss", refArDo(tlv.RefArDo{AID: []byte{7}, Hash: ruleA.Hash}), apdu.SWNotFound, 4},
		{"unknown target", unhex("C1 01 00"), apdu.SWDataInvalid, 4},
		{"AID over capacity", wrap(tlv.TagAidRefDo, make([]byte, 17)), apdu.SWDataInvalid, 4},
		{"trailing bytes", unhex("4F 02 01 02 00"), apdu.SWDataInvalid, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCard(t, Config{})
			c.store(ruleA)
			c.store(ruleA2)
			c.store(ruleB)
			c.store(other)

			c.expect(deleteCmd(tt.inner), tt.want)
			if c.a.Len() != tt.left {
				t.Errorf("Len() = %d, want %d", c.a.Len(), tt.left)
			}
		})
	}
}

func TestApplet_GetSpecific(t *testing.T) {
	c := newCard(t, Config{})
	c.store(ruleA)
	c.store(ruleB)

	want := append(unhex("FF 50 13"), refArDo(ruleA)...)
	ref := refDo(ruleA.AID, ruleA.Hash)

	got := c.expect(getDataCmd(GetSpecific, ref), apdu.SWSuccess)
	if !bytes.Equal(got, want) {
		t.Errorf("GET SPECIFIC = % X, want % X", got, want)
	}

	// REF-DO preceded by its length.
	got = c.expect(getDataCmd(GetSpecific, append([]byte{byte(len(ref))}, ref...)), apdu.SWSuccess)
	if !bytes.Equal(got, want) {
		t.Errorf("GET SPECIFIC (length prefixed) = % X, want % X", got, want)
	}

	c.expect(getDataCmd(GetSpecific, refDo(ruleA.AID, []byte{3})), apdu.SWNotFound)
	c.expect(getDataCmd(GetSpecific, nil), apdu.SWDataInvalid)
	c.expect(getDataCmd(GetSpecific, unhex("05 E1 00")), apdu.SWDataInvalid)
	c.expect(getDataCmd(GetSpecific, wrap(tlv.TagAidRefDo, ruleA.AID)), apdu.SWDataInvalid)
}

func TestApplet_GetSpecificTooLarge(t *testing.T) {
	c := newCard(t, Config{ChunkSize: 16})
	c.store(ruleA)
	c.expect(getDataCmd(GetSpecific, refDo(ruleA.AID, ruleA.Hash)), apdu.SWWrongLength)
}

func TestApplet_RefreshTag(t *testing.T) {
	store := storage.NewMemoryStore()
	c := newCard(t, Config{Store: store, Random: crypto.NewSeededRandom([]byte("tag"))})

	got := c.expect(getRefreshTagCmd, apdu.SWSuccess)
	if !bytes.Equal(got, unhex("DF 20 08 00 00 00 00 00 00 00 00")) {
		t.Errorf("initial refresh tag = % X", got)
	}

	c.expect(updateTagCmd, apdu.SWSuccess)
	first := c.expect(getRefreshTagCmd, apdu.SWSuccess)
	again := c.expect(getRefreshTagCmd, apdu.SWSuccess)
	if !bytes.Equal(first, again) {
		t.Errorf("refresh tag changed between reads: % X, % X", first, again)
	}
	wantTag, _ := crypto.ReadRandom(crypto.NewSeededRandom([]byte("tag")), RefreshTagSize)
	if !bytes.Equal(first[3:], wantTag) || !bytes.Equal(first[:3], unhex("DF 20 08")) {
		t.Errorf("refresh tag = % X, want DF 20 08 % X", first, wantTag)
	}

	c.expect(updateTagCmd, apdu.SWSuccess)
	second := c.expect(getRefreshTagCmd, apdu.SWSuccess)
	if bytes.Equal(first, second) {
		t.Errorf("refresh tag unchanged after update: % X", second)
	}

	reloaded := newCard(t, Config{Store: store})
	if got := reloaded.expect(getRefreshTagCmd, apdu.SWSuccess); !bytes.Equal(got, second) {
		t.Errorf("reloaded refresh tag = % X, want % X", got, second)
	}
}

func TestApplet_Rollback(t *testing.T) {
	fault := storage.NewFaultStore(storage.NewMemoryStore())
	c := newCard(t, Config{Store: fault})
	c.store(ruleA)
	c.store(ruleB)
	c.expect(updateTagCmd, apdu.SWSuccess)
	before := c.expect(getAllCmd, apdu.SWSuccess)
	tag := c.expect(getRefreshTagCmd, apdu.SWSuccess)

	for _, raw := range [][]byte{
		storeCmd(tlv.RefArDo{AID: []byte{7}}),
		deleteCmd(nil),
		deleteCmd(unhex("4F 02 01 02")),
		deleteCmd(refArDo(ruleA)),
		updateTagCmd,
	} {
		fault.FailAfter(0)
		c.expect(raw, apdu.SWUnknown)
		if got := c.expect(getAllCmd, apdu.SWSuccess); !bytes.Equal(got, before) {
			t.Errorf("after failed % X: GET ALL = % X, want % X", raw, got, before)
		}
		if got := c.expect(getRefreshTagCmd, apdu.SWSuccess); !bytes.Equal(got, tag) {
			t.Errorf("after failed % X: refresh tag = % X, want % X", raw, got, tag)
		}
	}

	reloaded := newCard(t, Config{Store: fault})
	if got := reloaded.expect(getAllCmd, apdu.SWSuccess); !bytes.Equal(got, before) {
		t.Errorf("reloaded GET ALL = % X, want % X", got, before)
	}
}

func TestApplet_MaxEntries(t *testing.T) {
	c := newCard(t, Config{MaxEntries: 1})
	c.store(ruleA)
	c.expect(storeCmd(ruleB), apdu.SWNotEnoughMemory)
	c.expect(deleteCmd(nil), apdu.SWSuccess)
	c.store(ruleB)
}

func TestApplet_Persistence(t *testing.T) {
	fs, err := storage.OpenFileStore(storage.FileStoreConfig{Path: filepath.Join(t.TempDir(), "aram.img")})
	if err != nil {
		t.Fatal(err)
	}
	c := newCard(t, Config{Store: fs})
	c.store(ruleA)
	c.store(ruleB)
	c.expect(deleteCmd(refDo(ruleA.AID, ruleA.Hash)), apdu.SWSuccess)
	c.store(ruleA)
	before := c.expect(getAllCmd, apdu.SWSuccess)

	reopened, err := storage.OpenFileStore(storage.FileStoreConfig{Path: fs.Path()})
	if err != nil {
		t.Fatal(err)
	}
	r := newCard(t, Config{Store: reopened})
	if got := r.expect(getAllCmd, apdu.SWSuccess); !bytes.Equal(got, before) {
		t.Errorf("GET ALL after reopen = % X, want % X", got, before)
	}
}

func TestNew_InvalidChunkSize(t *testing.T) {
	for _, size := range []int{-1, MinChunkSize - 1, MaxChunkSize + 1} {
		if _, err := New(Config{ChunkSize: size}); !errors.Is(err, ErrInvalidChunkSize) {
			t.Errorf("New(ChunkSize: %d) error = %v, want %v", size, err, ErrInvalidChunkSize)
		}
	}
}

func TestApplet_Transmit(t *testing.T) {
	c := newCard(t, Config{})

	resp, err := c.a.Transmit(context.Background(), getRefreshTagCmd)
	if err != nil {
		t.Fatalf("Transmit() error = %v", err)
	}
	if len(resp) != 13 {
		t.Errorf("Transmit() = % X, want 11 data bytes and SW", resp)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.a.Transmit(ctx, getRefreshTagCmd); !errors.Is(err, context.Canceled) {
		t.Errorf("Transmit() error = %v, want %v", err, context.Canceled)
	}
}
