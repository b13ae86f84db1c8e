package watermark

// Package watermark removes static watermarks from video by masking fixed
// rectangles and inpainting them on every frame. Frame decoding and the
// inpainting primitive live behind Inpainter; see package opencv.
