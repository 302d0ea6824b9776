/*Package interval implements interval-union operations over sorted integer
  position sequences: an interval-union is represented as a sorted list of
  interval endpoints (start, end, start, end, ...), and UnionScanner iterates
  the union's within-interval positions in order.

  This is used to compute, for each variant site in a PRG, the window of
  PRG-string offsets that "overlaps the site, or lies within max_read_size of
  its right boundary" (the sites-overlapping kmer enumeration mode), by
  unioning each site's window with its neighbours.

  It assumes every position fits in a PosType (int32).
*/
package interval
