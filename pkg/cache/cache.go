package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// defaultOperationTimeout is the timeout for individual Redis operations
	defaultOperationTimeout = 5 * time.Second

	courseTTL     = 1 * time.Hour
	courseListTTL = 5 * time.Minute
)

var (
	ErrCacheDisabled = errors.New("cache disabled")
	ErrCacheMiss     = errors.New("key not found")
)

type Cache struct {
	client  *redis.Client
	enabled bool
}

func NewCache(addr string, enable bool) (*Cache, error) {
	if !enable {
		return &Cache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		client:  client,
		enabled: true,
	}, nil
}

// Enabled reports whether reads can ever hit.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// operationContext creates a context with timeout for Redis operations
func (c *Cache) operationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultOperationTimeout)
}

func (c *Cache) Set(key string, value interface{}, expiration time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, jsonData, expiration).Err()
}

func (c *Cache) Get(key string, dest interface{}) error {
	if !c.Enabled() {
		return ErrCacheDisabled
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrCacheMiss
	} else if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (c *Cache) Delete(key string) error {
	if !c.Enabled() {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	return c.client.Del(ctx, key).Err()
}

func (c *Cache) DeletePattern(pattern string) error {
	if !c.Enabled() {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

func (c *Cache) CacheCourse(courseID uint, course interface{}) error {
	return c.Set(fmt.Sprintf("course:%d", courseID), course, courseTTL)
}

func (c *Cache) GetCachedCourse(courseID uint, dest interface{}) error {
	return c.Get(fmt.Sprintf("course:%d", courseID), dest)
}

func (c *Cache) InvalidateCourse(courseID uint) error {
	if err := c.Delete(fmt.Sprintf("course:%d", courseID)); err != nil {
		return err
	}
	return c.InvalidateCourseLists()
}

func (c *Cache) CacheCourseList(cacheKey string, courses interface{}) error {
	return c.Set("courses:"+cacheKey, courses, courseListTTL)
}

func (c *Cache) GetCachedCourseList(cacheKey string, dest interface{}) error {
	return c.Get("courses:"+cacheKey, dest)
}

func (c *Cache) InvalidateCourseLists() error {
	return c.DeletePattern("courses:*")
}

// InvalidateAllCourses drops every cached course and catalogue page.
func (c *Cache) InvalidateAllCourses() error {
	if err := c.DeletePattern("course:*"); err != nil {
		return err
	}
	return c.InvalidateCourseLists()
}
