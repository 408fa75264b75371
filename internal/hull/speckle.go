package hull

// DropSpeckles clears 8-connected groups of set pixels smaller than
// minRatio of all set pixels. The largest group always survives, so a
// non-empty mask stays non-empty. mask is not modified.
func DropSpeckles(mask []bool, width, height int, minRatio float64) []bool {
	out := append([]bool(nil), mask...)
	total := 0
	for _, v := range mask {
		if v {
			total++
		}
	}
	if total == 0 || minRatio <= 0 {
		return out
	}

	labels := make([]int, len(mask))
	for i := range labels {
		labels[i] = -1
	}
	var sizes []int
	dx := [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
	dy := [8]int{-1, -1, -1, 0, 0, 1, 1, 1}
	queue := make([]int, 0, 64)

	for start, set := range mask {
		if !set || labels[start] >= 0 {
			continue
		}
		id := len(sizes)
		labels[start] = id
		queue = append(queue[:0], start)
		size := 0
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			size++
			cx, cy := cur%width, cur/width
			for d := range dx {
				nx, ny := cx+dx[d], cy+dy[d]
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				n := ny*width + nx
				if mask[n] && labels[n] < 0 {
					labels[n] = id
					queue = append(queue, n)
				}
			}
		}
		sizes = append(sizes, size)
	}
	if len(sizes) <= 1 {
		return out
	}

	largest := 0
	for id, size := range sizes {
		if size > sizes[largest] {
			largest = id
		}
	}
	minSize := float64(total) * minRatio
	for i, id := range labels {
		if id >= 0 && id != largest && float64(sizes[id]) < minSize {
			out[i] = false
		}
	}
	return out
}
