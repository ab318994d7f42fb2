// Package slambridge talks to a live SLAM system over Redis. The SLAM side
// owns the keys: it republishes its sparse map as a raw float32 buffer when
// poked on the request channel, and keeps the latest camera pose under a
// fixed key. This package only ever reads.
package slambridge

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/cloud"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/config"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/monitoring"
)

// poseBufferSize is sixteen little-endian float32s: a row-major 4x4 T_cw.
const poseBufferSize = 64

// Bridge is a read-side client for the SLAM system's Redis keys.
type Bridge struct {
	rdb *redis.Client
	cfg config.Redis
}

// New connects to the Redis instance named in cfg. The connection is lazy;
// use Ping to verify it.
func New(cfg config.Redis) *Bridge {
	return &Bridge{
		rdb: redis.NewClient(&redis.Options{Addr: cfg.Addr}),
		cfg: cfg,
	}
}

// Ping verifies the Redis connection.
func (b *Bridge) Ping(ctx context.Context) error {
	if err := b.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis at %s: %w", b.cfg.Addr, err)
	}
	return nil
}

// Close releases the client.
func (b *Bridge) Close() error {
	return b.rdb.Close()
}

// RequestMap pokes the SLAM system to republish its current map.
func (b *Bridge) RequestMap(ctx context.Context) error {
	if err := b.rdb.Publish(ctx, b.cfg.RequestChannel, "1").Err(); err != nil {
		return fmt.Errorf("publishing on %s: %w", b.cfg.RequestChannel, err)
	}
	return nil
}

// FetchMapPoints polls the map key until a decodable point buffer appears or
// the configured fetch timeout passes. Undecodable buffers (the SLAM side
// may still be writing, or the map is below the minimum size) are skipped
// and polling continues.
func (b *Bridge) FetchMapPoints(ctx context.Context) ([]geom.Vec3, error) {
	interval := time.Duration(b.cfg.PollIntervalMS) * time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, time.Duration(b.cfg.FetchTimeoutMS)*time.Millisecond)
	defer cancel()

	for {
		buf, err := b.rdb.Get(ctx, b.cfg.MapKey).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			// Not published yet; keep waiting.
		case err != nil:
			return nil, fmt.Errorf("reading %s: %w", b.cfg.MapKey, err)
		default:
			pts, derr := cloud.DecodeF32(buf)
			if derr == nil {
				return pts, nil
			}
			monitoring.Logf("slambridge: ignoring map buffer (%d bytes): %v", len(buf), derr)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", b.cfg.MapKey, ctx.Err())
		case <-time.After(interval):
		}
	}
}

// LatestPose reads the most recent camera pose published by the SLAM system.
func (b *Bridge) LatestPose(ctx context.Context) (geom.Mat4, error) {
	buf, err := b.rdb.Get(ctx, b.cfg.PoseKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return geom.Mat4{}, fmt.Errorf("no pose published at %s", b.cfg.PoseKey)
	}
	if err != nil {
		return geom.Mat4{}, fmt.Errorf("reading %s: %w", b.cfg.PoseKey, err)
	}
	return DecodePose(buf)
}

// DecodePose decodes a pose buffer into a row-major transform. Validation of
// the transform itself (rotation orthonormality, bottom row) is left to the
// scene layer, which sees poses from files through the same checks.
func DecodePose(buf []byte) (geom.Mat4, error) {
	if len(buf) != poseBufferSize {
		return geom.Mat4{}, fmt.Errorf("pose buffer is %d bytes, want %d", len(buf), poseBufferSize)
	}
	var m geom.Mat4
	for i := range m {
		m[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:])))
	}
	return m, nil
}
