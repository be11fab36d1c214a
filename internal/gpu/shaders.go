// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// shaders.go holds the WGSL compute shader sources for the scaling
// kernels. Each shader reads packed RGBA pixels (R in the low byte) from
// a read-only storage buffer and writes the scaled result to a second
// storage buffer, one invocation per destination pixel.
//
// The sampling math must stay in lockstep with internal/kernel so that
// a stage produces the same image regardless of which path ran it.

package gpu

// shaderWorkgroupDim is the workgroup edge length used by all scaling
// shaders. Dispatches cover the destination with ceil-divided 8x8 groups.
const shaderWorkgroupDim = 8

// shaderPrelude is shared by every scaling shader: the Params uniform,
// the pixel buffers, and the pack/unpack/addressing helpers.
const shaderPrelude = `
struct Params {
    src_width: u32,
    src_height: u32,
    dst_width: u32,
    dst_height: u32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> src_pixels: array<u32>;
@group(0) @binding(2) var<storage, read_write> dst_pixels: array<u32>;

// fetch returns the source pixel at (x, y) with clamp-to-edge
// addressing, unpacked to 0..255 floats.
fn fetch(x: i32, y: i32) -> vec4<f32> {
    let cx = clamp(x, 0, i32(params.src_width) - 1);
    let cy = clamp(y, 0, i32(params.src_height) - 1);
    let p = src_pixels[u32(cy) * params.src_width + u32(cx)];
    return vec4<f32>(
        f32(p & 0xffu),
        f32((p >> 8u) & 0xffu),
        f32((p >> 16u) & 0xffu),
        f32((p >> 24u) & 0xffu));
}

// store rounds the accumulated color to the nearest byte and packs it
// into the destination pixel at (x, y).
fn store(x: u32, y: u32, c: vec4<f32>) {
    let q = clamp(c + vec4<f32>(0.5), vec4<f32>(0.0), vec4<f32>(255.0));
    dst_pixels[y * params.dst_width + x] =
        u32(q.x) | (u32(q.y) << 8u) | (u32(q.z) << 16u) | (u32(q.w) << 24u);
}

// src_coord maps a destination index to the continuous source
// coordinate under pixel-center alignment.
fn src_coord(d: u32, dn: u32, sn: u32) -> f32 {
    return (f32(d) + 0.5) * f32(sn) / f32(dn) - 0.5;
}
`

// bilinearShaderSource samples the four nearest source pixels.
const bilinearShaderSource = shaderPrelude + `
@compute @workgroup_size(8, 8)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= params.dst_width || gid.y >= params.dst_height) {
        return;
    }
    let sx = src_coord(gid.x, params.dst_width, params.src_width);
    let sy = src_coord(gid.y, params.dst_height, params.src_height);
    let x0 = i32(floor(sx));
    let y0 = i32(floor(sy));
    let fx = sx - f32(x0);
    let fy = sy - f32(y0);
    let top = mix(fetch(x0, y0), fetch(x0 + 1, y0), fx);
    let bot = mix(fetch(x0, y0 + 1), fetch(x0 + 1, y0 + 1), fx);
    store(gid.x, gid.y, mix(top, bot, fy));
}
`

// bicubicShaderSource evaluates the Catmull-Rom spline (B=0, C=0.5)
// over a 4x4 source window. The weights sum to one, so flat regions
// pass through unchanged without normalization.
const bicubicShaderSource = shaderPrelude + `
fn catmull_rom(t: f32) -> f32 {
    let x = abs(t);
    if (x < 1.0) {
        return 1.5 * x * x * x - 2.5 * x * x + 1.0;
    }
    if (x < 2.0) {
        return -0.5 * x * x * x + 2.5 * x * x - 4.0 * x + 2.0;
    }
    return 0.0;
}

@compute @workgroup_size(8, 8)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= params.dst_width || gid.y >= params.dst_height) {
        return;
    }
    let sx = src_coord(gid.x, params.dst_width, params.src_width);
    let sy = src_coord(gid.y, params.dst_height, params.src_height);
    let ix = i32(floor(sx));
    let iy = i32(floor(sy));
    let tx = sx - f32(ix);
    let ty = sy - f32(iy);

    var c = vec4<f32>(0.0);
    for (var j = 0; j < 4; j = j + 1) {
        let wy = catmull_rom(ty - f32(j - 1));
        for (var i = 0; i < 4; i = i + 1) {
            let w = catmull_rom(tx - f32(i - 1)) * wy;
            c = c + fetch(ix + i - 1, iy + j - 1) * w;
        }
    }
    store(gid.x, gid.y, c);
}
`

// lanczos3ShaderSource evaluates the 3-lobe Lanczos kernel over a 6x6
// source window. Lanczos weights do not sum to exactly one, so the
// accumulated color is normalized by the weight sum.
const lanczos3ShaderSource = shaderPrelude + `
fn lanczos3(t: f32) -> f32 {
    let x = abs(t);
    if (x >= 3.0) {
        return 0.0;
    }
    if (x < 1e-6) {
        return 1.0;
    }
    let px = x * 3.14159265358979;
    return 3.0 * sin(px) * sin(px / 3.0) / (px * px);
}

@compute @workgroup_size(8, 8)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= params.dst_width || gid.y >= params.dst_height) {
        return;
    }
    let sx = src_coord(gid.x, params.dst_width, params.src_width);
    let sy = src_coord(gid.y, params.dst_height, params.src_height);
    let ix = i32(floor(sx));
    let iy = i32(floor(sy));
    let tx = sx - f32(ix);
    let ty = sy - f32(iy);

    var c = vec4<f32>(0.0);
    var wsum = 0.0;
    for (var j = 0; j < 6; j = j + 1) {
        let wy = lanczos3(ty - f32(j - 2));
        for (var i = 0; i < 6; i = i + 1) {
            let w = lanczos3(tx - f32(i - 2)) * wy;
            c = c + fetch(ix + i - 2, iy + j - 2) * w;
            wsum = wsum + w;
        }
    }
    if (wsum != 0.0) {
        c = c / wsum;
    }
    store(gid.x, gid.y, c);
}
`

// progressive2xShaderSource is the doubling kernel used for
// intermediate stages. Each destination pixel blends its nearest source
// pixel with the three neighbors on its quadrant, steering the weights
// along a detected luma edge.
const progressive2xShaderSource = shaderPrelude + `
fn luma(c: vec4<f32>) -> f32 {
    return 0.299 * c.x + 0.587 * c.y + 0.114 * c.z;
}

@compute @workgroup_size(8, 8)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= params.dst_width || gid.y >= params.dst_height) {
        return;
    }
    let ix = i32(gid.x >> 1u);
    let iy = i32(gid.y >> 1u);
    var nx = ix - 1;
    if ((gid.x & 1u) == 1u) {
        nx = ix + 1;
    }
    var ny = iy - 1;
    if ((gid.y & 1u) == 1u) {
        ny = iy + 1;
    }

    let p = fetch(ix, iy);
    let h = fetch(nx, iy);
    let v = fetch(ix, ny);
    let d = fetch(nx, ny);

    let d_hv = abs(luma(h) - luma(v));
    let d_pd = abs(luma(p) - luma(d));

    var wp = 0.5625;
    var wh = 0.1875;
    var wv = 0.1875;
    var wd = 0.0625;
    if (d_pd + 16.0 < d_hv) {
        wp = 0.5;
        wh = 0.125;
        wv = 0.125;
        wd = 0.25;
    } else if (d_hv + 16.0 < d_pd) {
        wp = 0.375;
        wh = 0.25;
        wv = 0.25;
        wd = 0.125;
    }

    store(gid.x, gid.y, p * wp + h * wh + v * wv + d * wd);
}
`
