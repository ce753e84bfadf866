// File: hostsched/fair.go
// Author: momentics <momentics@gmail.com>
//
// Fair-class weight tables. A nice level is worth about 10% CPU over
// its neighbour; the inverse weights pre-divide 2^32 for the
// wmult-style arithmetic.

package hostsched

// prioToWeight maps static priority - 100 (nice -20..+19) to load
// weight.
var prioToWeight = [40]uint64{
	88761, 71755, 56483, 46273, 36291,
	29154, 23254, 18705, 14949, 11916,
	9548, 7620, 6100, 4904, 3906,
	3121, 2501, 1991, 1586, 1277,
	1024, 820, 655, 526, 423,
	335, 272, 215, 172, 137,
	110, 87, 70, 56, 45,
	36, 29, 23, 18, 15,
}

// prioToWMult is 2^32 / prioToWeight.
var prioToWMult = [40]uint32{
	48388, 59856, 76040, 92818, 118348,
	147320, 184698, 229616, 287308, 360437,
	449829, 563644, 704093, 875809, 1099582,
	1376151, 1717300, 2157191, 2708050, 3363326,
	4194304, 5237765, 6557202, 8165337, 10153587,
	12820798, 15790321, 19976592, 24970740, 31350126,
	39045157, 49367440, 61356676, 76695844, 95443717,
	119304647, 148102320, 186737708, 238609294, 286331153,
}

// weightsForNice returns the (weight, inverse weight) pair of a nice
// level, clamped into the fair range.
func weightsForNice(nice int) (uint64, uint32) {
	if nice < -20 {
		nice = -20
	}
	if nice > 19 {
		nice = 19
	}
	return prioToWeight[nice+20], prioToWMult[nice+20]
}
