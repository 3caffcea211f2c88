package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_Set(t *testing.T) {
	ctx := context.Background()
	answer := GroundedAnswer{Text: "Clear roads", Sources: []Source{{Title: "A", URI: "a"}}}

	testCases := []struct {
		name        string
		key         string
		value       any
		expiration  time.Duration
		setupMock   func(mock redismock.ClientMock, key string, value any, expiration time.Duration)
		expectedErr error
	}{
		{
			name:       "Success",
			key:        "grounding:abc",
			value:      answer,
			expiration: 2 * time.Minute,
			setupMock: func(mock redismock.ClientMock, key string, value any, expiration time.Duration) {
				jsonData, _ := json.Marshal(value)
				mock.ExpectSet(key, jsonData, expiration).SetVal("OK")
			},
		},
		{
			name:        "Error on json.Marshal",
			key:         "grounding:abc",
			value:       make(chan int),
			expiration:  2 * time.Minute,
			setupMock:   func(mock redismock.ClientMock, key string, value any, expiration time.Duration) {},
			expectedErr: &json.UnsupportedTypeError{},
		},
		{
			name:       "Error from Redis client",
			key:        "grounding:abc",
			value:      answer,
			expiration: 2 * time.Minute,
			setupMock: func(mock redismock.ClientMock, key string, value any, expiration time.Duration) {
				jsonData, _ := json.Marshal(value)
				mock.ExpectSet(key, jsonData, expiration).SetErr(errors.New("redis error"))
			},
			expectedErr: errors.New("redis error"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			redisClient, redisMock := redismock.NewClientMock()
			defer redisClient.Close()

			cache := NewRedisCache(redisClient)
			tc.setupMock(redisMock, tc.key, tc.value, tc.expiration)

			err := cache.Set(ctx, tc.key, tc.value, tc.expiration)

			if tc.expectedErr != nil {
				require.Error(t, err)
				if _, ok := tc.expectedErr.(*json.UnsupportedTypeError); ok {
					assert.IsType(t, &json.UnsupportedTypeError{}, err)
				} else {
					assert.EqualError(t, err, tc.expectedErr.Error())
				}
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, redisMock.ExpectationsWereMet())
		})
	}
}

func TestRedisCache_Get(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name        string
		key         string
		setupMock   func(mock redismock.ClientMock, key string)
		expectedVal string
		expectedErr error
	}{
		{
			name: "Success",
			key:  "grounding:abc",
			setupMock: func(mock redismock.ClientMock, key string) {
				mock.ExpectGet(key).SetVal(`{"text":"ok","sources":[]}`)
			},
			expectedVal: `{"text":"ok","sources":[]}`,
		},
		{
			name: "Miss returns redis.Nil",
			key:  "grounding:missing",
			setupMock: func(mock redismock.ClientMock, key string) {
				mock.ExpectGet(key).RedisNil()
			},
			expectedErr: redis.Nil,
		},
		{
			name: "Error from Redis client",
			key:  "grounding:abc",
			setupMock: func(mock redismock.ClientMock, key string) {
				mock.ExpectGet(key).SetErr(errors.New("connection refused"))
			},
			expectedErr: errors.New("connection refused"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			redisClient, redisMock := redismock.NewClientMock()
			defer redisClient.Close()

			cache := NewRedisCache(redisClient)
			tc.setupMock(redisMock, tc.key)

			val, err := cache.Get(ctx, tc.key)

			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.EqualError(t, err, tc.expectedErr.Error())
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expectedVal, val)
			}
			assert.NoError(t, redisMock.ExpectationsWereMet())
		})
	}
}

func TestRedisCache_Flush(t *testing.T) {
	ctx := context.Background()
	pattern := answerCacheKeyPrefix + ":*"

	testCases := []struct {
		name        string
		setupMock   func(mock redismock.ClientMock)
		expectedErr error
	}{
		{
			name: "Deletes answer keys",
			setupMock: func(mock redismock.ClientMock) {
				mock.ExpectScan(0, pattern, 100).SetVal([]string{"grounding:a", "grounding:b"}, 0)
				mock.ExpectDel("grounding:a", "grounding:b").SetVal(2)
			},
		},
		{
			name: "Nothing to delete",
			setupMock: func(mock redismock.ClientMock) {
				mock.ExpectScan(0, pattern, 100).SetVal([]string{}, 0)
			},
		},
		{
			name: "Scan error",
			setupMock: func(mock redismock.ClientMock) {
				mock.ExpectScan(0, pattern, 100).SetErr(errors.New("scan failed"))
			},
			expectedErr: errors.New("scan failed"),
		},
		{
			name: "Delete error",
			setupMock: func(mock redismock.ClientMock) {
				mock.ExpectScan(0, pattern, 100).SetVal([]string{"grounding:a"}, 0)
				mock.ExpectDel("grounding:a").SetErr(errors.New("del failed"))
			},
			expectedErr: errors.New("del failed"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			redisClient, redisMock := redismock.NewClientMock()
			defer redisClient.Close()

			cache := NewRedisCache(redisClient)
			tc.setupMock(redisMock)

			err := cache.Flush(ctx)

			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.EqualError(t, err, tc.expectedErr.Error())
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, redisMock.ExpectationsWereMet())
		})
	}
}
