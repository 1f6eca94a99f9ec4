package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/vidsearch/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// --- hash.go tests ---

func TestHSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET" && cmd[1] == "vidsearch:item:v1"
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	err := s.HSet(context.Background(), "vidsearch:item:v1", map[string]string{"title": "Sunset hike"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSet_FieldsInSortedOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HSET", "vidsearch:item:v1",
			"description", "golden light", "location_key", "sf", "title", "Sunset hike")).
		Return(mock.Result(mock.RedisInt64(3)))

	s := NewStoreForTest(c)
	err := s.HSet(context.Background(), "vidsearch:item:v1", map[string]string{
		"title":        "Sunset hike",
		"location_key": "sf",
		"description":  "golden light",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	err := s.HSet(context.Background(), "vidsearch:item:v1", map[string]string{"title": "t"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestHGetAll_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "vidsearch:item:v1")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"title":        mock.RedisString("Sunset hike"),
			"location_key": mock.RedisString("sf"),
		})))

	s := NewStoreForTest(c)
	m, err := s.HGetAll(context.Background(), "vidsearch:item:v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["title"] != "Sunset hike" || m["location_key"] != "sf" {
		t.Errorf("unexpected map: %v", m)
	}
}

func TestHGetAll_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "vidsearch:item:v1")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.HGetAll(context.Background(), "vidsearch:item:v1")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestHSetMulti_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(2)),
			mock.Result(mock.RedisInt64(2)),
		})

	s := NewStoreForTest(c)
	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "vidsearch:item:a", Fields: map[string]string{"title": "Sunset hike"}},
		{Key: "vidsearch:item:b", Fields: map[string]string{"title": "Harbor walk"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSetMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil)
	if err := s.HSetMulti(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHGetAllMulti_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
				"f": mock.RedisString("a"),
			})),
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
				"f": mock.RedisString("b"),
			})),
		})

	s := NewStoreForTest(c)
	results, err := s.HGetAllMulti(context.Background(), []string{"vidsearch:item:a", "vidsearch:item:b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0]["f"] != "a" || results[1]["f"] != "b" {
		t.Errorf("unexpected results: %v", results)
	}
}

func TestHGetAllMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil) // client not called
	results, err := s.HGetAllMulti(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil, got %v", results)
	}
}

func TestDel_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "vidsearch:item:v1")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	if err := s.Del(context.Background(), "vidsearch:item:v1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExists_True(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXISTS", "vidsearch:item:v1")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	exists, err := s.Exists(context.Background(), "vidsearch:item:v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("expected true")
	}
}

func TestExists_False(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXISTS", "vidsearch:item:v1")).
		Return(mock.Result(mock.RedisInt64(0)))

	s := NewStoreForTest(c)
	exists, err := s.Exists(context.Background(), "vidsearch:item:v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected false")
	}
}

func TestScan_SinglePage(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	// SCAN returns [cursor, [elements...]]
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(0), // cursor=0 means done
			mock.RedisArray(mock.RedisString("vidsearch:item:a"), mock.RedisString("vidsearch:item:b")),
		)))

	s := NewStoreForTest(c)
	keys, err := s.Scan(context.Background(), "vidsearch:item:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
}

func TestScan_MultiPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	first := true
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN"
		})).
		DoAndReturn(func(_ context.Context, _ rueidis.Completed) rueidis.RedisResult {
			if first {
				first = false
				return mock.Result(mock.RedisArray(
					mock.RedisInt64(42), // cursor=42 means more
					mock.RedisArray(mock.RedisString("vidsearch:item:a")),
				))
			}
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(0), // cursor=0 means done
				mock.RedisArray(mock.RedisString("vidsearch:item:b")),
			))
		}).Times(2)

	s := NewStoreForTest(c)
	keys, err := s.Scan(context.Background(), "vidsearch:item:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
}

func TestScan_DropsRepeatedKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	page := 0
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN" && cmd[len(cmd)-1] == "500"
		})).
		DoAndReturn(func(_ context.Context, _ rueidis.Completed) rueidis.RedisResult {
			page++
			if page == 1 {
				return mock.Result(mock.RedisArray(
					mock.RedisInt64(7),
					mock.RedisArray(mock.RedisString("vidsearch:item:a"), mock.RedisString("vidsearch:item:b")),
				))
			}
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(0),
				mock.RedisArray(mock.RedisString("vidsearch:item:b"), mock.RedisString("vidsearch:item:c")),
			))
		}).Times(2)

	s := NewStoreForTest(c)
	keys, err := s.Scan(context.Background(), "vidsearch:item:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(keys, ","); got != "vidsearch:item:a,vidsearch:item:b,vidsearch:item:c" {
		t.Errorf("keys = %s", got)
	}
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "vidsearch:item:v1")).
		Return(mock.Result(mock.RedisBlobString("cached-bytes")))

	s := NewStoreForTest(c)
	data, err := s.Get(context.Background(), "vidsearch:item:v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "cached-bytes" {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "vidsearch:item:v1")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "vidsearch:item:v1")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "vidsearch:item:v1", "cached-bytes")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.Set(context.Background(), "vidsearch:item:v1", []byte("cached-bytes")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetWithTTL_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SET" && cmd[1] == "vidsearch:item:v1" && cmd[2] == "cached-bytes"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.SetWithTTL(context.Background(), "vidsearch:item:v1", []byte("cached-bytes"), 60*1e9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIncrByTTL_PipelinesExpireNX(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent [][]string
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			for _, cmd := range cmds {
				sent = append(sent, cmd.Commands())
			}
			return []rueidis.RedisResult{
				mock.Result(mock.RedisInt64(12)),
				mock.Result(mock.RedisInt64(0)),
			}
		})

	s := NewStoreForTest(c)
	total, err := s.IncrByTTL(context.Background(), "vidsearch:budget:openai:daily:2026-10-16", 5, 48*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 12 {
		t.Errorf("total = %d, want 12", total)
	}

	want := []string{
		"INCRBY vidsearch:budget:openai:daily:2026-10-16 5",
		"EXPIRE vidsearch:budget:openai:daily:2026-10-16 172800 NX",
	}
	if len(sent) != len(want) {
		t.Fatalf("sent %v", sent)
	}
	for i := range want {
		if got := strings.Join(sent[i], " "); got != want[i] {
			t.Errorf("command %d = %q, want %q", i, got, want[i])
		}
	}
}

func TestIncrByTTL_IncrError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisError("ERR value is not an integer or out of range")),
			mock.Result(mock.RedisInt64(0)),
		})

	s := NewStoreForTest(c)
	_, err := s.IncrByTTL(context.Background(), "k", 1, time.Hour)
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpIncrBy {
		t.Fatalf("expected INCRBY db.Error, got %v", err)
	}
}

func TestIncrByTTL_ExpireErrorKeepsTotal(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(3)),
			mock.ErrorResult(context.DeadlineExceeded),
		})

	s := NewStoreForTest(c)
	total, err := s.IncrByTTL(context.Background(), "k", 3, time.Hour)
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpExpire {
		t.Fatalf("expected EXPIRE db.Error, got %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}

// --- list.go tests ---

func TestRPushAtomic_WrapsPushesInMultiExec(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent [][]string
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			for _, cmd := range cmds {
				sent = append(sent, cmd.Commands())
			}
			return []rueidis.RedisResult{
				mock.Result(mock.RedisString("OK")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisArray(mock.RedisInt64(2), mock.RedisInt64(1))),
			}
		})

	s := NewStoreForTest(c)
	err := s.RPushAtomic(context.Background(), []db.ListPush{
		{Key: "vidsearch:{feedback}:s1", Values: [][]byte{[]byte(`{"a":1}`), []byte(`{"b":2}`)}},
		{Key: "vidsearch:{feedback}:all", Values: [][]byte{[]byte(`{"a":1}`)}},
		{Key: "vidsearch:{feedback}:skipped"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]string{
		{"MULTI"},
		{"RPUSH", "vidsearch:{feedback}:s1", `{"a":1}`, `{"b":2}`},
		{"RPUSH", "vidsearch:{feedback}:all", `{"a":1}`},
		{"EXEC"},
	}
	if len(sent) != len(want) {
		t.Fatalf("sent %d commands, want %d: %v", len(sent), len(want), sent)
	}
	for i := range want {
		if strings.Join(sent[i], " ") != strings.Join(want[i], " ") {
			t.Errorf("command %d = %v, want %v", i, sent[i], want[i])
		}
	}
}

func TestRPushAtomic_NothingToPush(t *testing.T) {
	s := NewStoreForTest(nil)
	err := s.RPushAtomic(context.Background(), []db.ListPush{{Key: "k"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.RPushAtomic(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRPushAtomic_TransportError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.ErrorResult(context.DeadlineExceeded),
			mock.ErrorResult(context.DeadlineExceeded),
			mock.ErrorResult(context.DeadlineExceeded),
		})

	s := NewStoreForTest(c)
	err := s.RPushAtomic(context.Background(), []db.ListPush{
		{Key: "vidsearch:{feedback}:s1", Values: [][]byte{[]byte("x")}},
	})
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestRPushAtomic_ErrorInsideExec(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisArray(mock.RedisError("WRONGTYPE Operation against a key holding the wrong kind of value"))),
		})

	s := NewStoreForTest(c)
	err := s.RPushAtomic(context.Background(), []db.ListPush{
		{Key: "vidsearch:{feedback}:s1", Values: [][]byte{[]byte("x")}},
	})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected db.Error, got %v", err)
	}
	if dbErr.Op != db.OpRPush {
		t.Errorf("op = %s, want %s", dbErr.Op, db.OpRPush)
	}
}

func TestLRange_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("LRANGE", "vidsearch:{feedback}:s1", "0", "-1")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisString("first"),
			mock.RedisString("second"),
		)))

	s := NewStoreForTest(c)
	vals, err := s.LRange(context.Background(), "vidsearch:{feedback}:s1", 0, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vals) != 2 || string(vals[0]) != "first" || string(vals[1]) != "second" {
		t.Errorf("unexpected values: %q", vals)
	}
}

func TestLRange_Missing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("LRANGE", "nope", "0", "-1")).
		Return(mock.Result(mock.RedisArray()))

	s := NewStoreForTest(c)
	vals, err := s.LRange(context.Background(), "nope", 0, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vals) != 0 {
		t.Errorf("expected empty, got %q", vals)
	}
}

// --- stream.go tests ---

func TestXAdd_WithMaxLen(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("XADD", "vidsearch:traces", "MAXLEN", "~", "1000", "*", "name", "expand", "span", "{}")).
		Return(mock.Result(mock.RedisString("1-0")))

	s := NewStoreForTest(c)
	err := s.XAdd(context.Background(), "vidsearch:traces", 1000, map[string]string{
		"span": "{}",
		"name": "expand",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestXAdd_NoTrim(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("XADD", "s", "*", "span", "{}")).
		Return(mock.Result(mock.RedisString("1-0")))

	s := NewStoreForTest(c)
	if err := s.XAdd(context.Background(), "s", 0, map[string]string{"span": "{}"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestXAdd_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "XADD"
		})).
		Return(mock.ErrorResult(errors.New("OOM")))

	s := NewStoreForTest(c)
	err := s.XAdd(context.Background(), "s", 10, map[string]string{"span": "{}"})
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
